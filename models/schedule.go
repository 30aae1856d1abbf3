package models

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AvailabilityStatus is one of the three states a member can explicitly
// record for an hour slot. The fourth state, "unset", is represented by a
// nil *AvailabilityStatus and serializes as JSON null.
type AvailabilityStatus string

const (
	StatusAvailable AvailabilityStatus = "available"
	StatusRemote    AvailabilityStatus = "remote"
	StatusBusy      AvailabilityStatus = "busy"
)

// ValidStatus reports whether s is one of the three recordable statuses.
func ValidStatus(s AvailabilityStatus) bool {
	return s == StatusAvailable || s == StatusRemote || s == StatusBusy
}

// Days is the canonical weekday order. Day indexes throughout the codebase
// refer to positions in this slice.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// The scheduling grid covers 8 AM through 11 PM, 16 one-hour slots per day.
const (
	FirstHour   = 8
	LastHour    = 23
	HoursPerDay = LastHour - FirstHour + 1
)

// TimeSlots lists the grid hours in order (8..23).
var TimeSlots = func() []int {
	hours := make([]int, 0, HoursPerDay)
	for h := FirstHour; h <= LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}()

// TimeBlock is one member's status for a single hour of a single day.
type TimeBlock struct {
	Hour   int                 `json:"hour"`
	Status *AvailabilityStatus `json:"status"`
}

// DayAvailability holds the 16 hour blocks of one weekday.
type DayAvailability struct {
	Day    string      `json:"day"`
	Blocks []TimeBlock `json:"blocks"`
}

// Member is one participant in a group. Availability always spans the full
// week (7 days x 16 hours) once it has passed through Normalize.
type Member struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	JoinedAt     time.Time         `json:"joinedAt"`
	Availability []DayAvailability `json:"availability"`
}

// Group metadata. Members are stored and transported separately, keyed by
// the group code; a member references its group by code only.
type Group struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEmptyAvailability builds a full week of unset blocks.
func NewEmptyAvailability() []DayAvailability {
	week := make([]DayAvailability, 0, len(Days))
	for _, day := range Days {
		blocks := make([]TimeBlock, 0, HoursPerDay)
		for _, hour := range TimeSlots {
			blocks = append(blocks, TimeBlock{Hour: hour})
		}
		week = append(week, DayAvailability{Day: day, Blocks: blocks})
	}
	return week
}

// Normalize returns availability reshaped onto the canonical 7x16 grid.
// Statuses from av land on their (day, hour) cell; anything missing comes
// back unset, anything outside the grid is dropped. The input is not
// modified and the result shares no structure with it.
func Normalize(av []DayAvailability) []DayAvailability {
	week := NewEmptyAvailability()

	dayIndex := make(map[string]int, len(Days))
	for i, day := range Days {
		dayIndex[day] = i
	}

	for _, day := range av {
		di, ok := dayIndex[day.Day]
		if !ok {
			continue
		}
		for _, block := range day.Blocks {
			if block.Status == nil || block.Hour < FirstHour || block.Hour > LastHour {
				continue
			}
			status := *block.Status
			week[di].Blocks[block.Hour-FirstHour].Status = &status
		}
	}
	return week
}

// CloneAvailability deep-copies a week so the copy shares no structure
// with the original.
func CloneAvailability(av []DayAvailability) []DayAvailability {
	clone := make([]DayAvailability, len(av))
	for i, day := range av {
		blocks := make([]TimeBlock, len(day.Blocks))
		for j, block := range day.Blocks {
			blocks[j] = TimeBlock{Hour: block.Hour}
			if block.Status != nil {
				status := *block.Status
				blocks[j].Status = &status
			}
		}
		clone[i] = DayAvailability{Day: day.Day, Blocks: blocks}
	}
	return clone
}

// HasAnyStatus reports whether at least one block in the week carries an
// explicit status.
func HasAnyStatus(av []DayAvailability) bool {
	for _, day := range av {
		for _, block := range day.Blocks {
			if block.Status != nil {
				return true
			}
		}
	}
	return false
}

const (
	groupCodePrefix  = "SYNC-"
	groupCodeLength  = 6
	groupCodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// GenerateGroupCode produces a shareable code like "SYNC-AB12CD": a fixed
// prefix plus 6 random base-36 characters. Codes are generated client-side;
// the server only enforces uniqueness at creation time.
func GenerateGroupCode() string {
	var sb strings.Builder
	sb.WriteString(groupCodePrefix)
	max := big.NewInt(int64(len(groupCodeCharset)))
	for i := 0; i < groupCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic("models: reading random source: " + err.Error())
		}
		sb.WriteByte(groupCodeCharset[n.Int64()])
	}
	return sb.String()
}

// NewMemberID returns a fresh collision-resistant member identifier.
func NewMemberID() string {
	return uuid.NewString()
}
