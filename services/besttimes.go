package services

import (
	"fmt"
	"sort"

	"github.com/aryeetea/SyncSpaceScheduling/models"
)

// BestSlotThreshold is the fraction of available-or-remote members a slot
// needs to count as a strong match.
const BestSlotThreshold = 0.8

// MaxBestSlots caps the ranked best-times list.
const MaxBestSlots = 5

// SlotScore is the availability score of one (day, hour) cell across a
// member snapshot.
type SlotScore struct {
	Day            string  `json:"day"`
	Hour           int     `json:"hour"`
	AvailableCount int     `json:"availableCount"`
	TotalMembers   int     `json:"totalMembers"`
	Score          float64 `json:"score"`
}

// DayScore summarizes how promising a whole day looks.
type DayScore struct {
	Day             string  `json:"day"`
	QualifyingSlots int     `json:"qualifyingSlots"`
	AverageScore    float64 `json:"averageScore"`
}

// SlotScores computes the score of every (day, hour) cell in canonical
// day-then-hour order. A member counts toward a slot when their status
// there is available or remote. With no members every score is 0; the
// function never errors. Output depends only on the input snapshot.
func SlotScores(members []models.Member) []SlotScore {
	scores := make([]SlotScore, 0, len(models.Days)*models.HoursPerDay)

	for dayIdx, day := range models.Days {
		for _, hour := range models.TimeSlots {
			count := 0
			for _, member := range members {
				if memberFreeAt(member, dayIdx, hour) {
					count++
				}
			}

			score := 0.0
			if len(members) > 0 {
				score = float64(count) / float64(len(members))
			}

			scores = append(scores, SlotScore{
				Day:            day,
				Hour:           hour,
				AvailableCount: count,
				TotalMembers:   len(members),
				Score:          score,
			})
		}
	}
	return scores
}

func memberFreeAt(member models.Member, dayIdx, hour int) bool {
	if dayIdx >= len(member.Availability) {
		return false
	}
	for _, block := range member.Availability[dayIdx].Blocks {
		if block.Hour == hour {
			return block.Status != nil &&
				(*block.Status == models.StatusAvailable || *block.Status == models.StatusRemote)
		}
	}
	return false
}

// BestSlots ranks the slots at or above the threshold, highest score
// first. The sort is stable, so equally scored slots keep their
// day-then-hour order. At most MaxBestSlots entries come back; an empty
// list means no strong match yet.
func BestSlots(scores []SlotScore) []SlotScore {
	best := make([]SlotScore, 0, MaxBestSlots)
	for _, slot := range scores {
		if slot.Score >= BestSlotThreshold {
			best = append(best, slot)
		}
	}
	sort.SliceStable(best, func(i, j int) bool {
		return best[i].Score > best[j].Score
	})
	if len(best) > MaxBestSlots {
		best = best[:MaxBestSlots]
	}
	return best
}

// BestDay picks the day with the most qualifying slots, breaking ties by
// the higher average score over the day's 16 slots. The second return is
// false when no day has a single qualifying slot.
func BestDay(scores []SlotScore) (DayScore, bool) {
	perDay := make(map[string]*DayScore, len(models.Days))
	for _, day := range models.Days {
		perDay[day] = &DayScore{Day: day}
	}

	for _, slot := range scores {
		ds, ok := perDay[slot.Day]
		if !ok {
			continue
		}
		if slot.Score >= BestSlotThreshold {
			ds.QualifyingSlots++
		}
		ds.AverageScore += slot.Score / float64(models.HoursPerDay)
	}

	var best DayScore
	for _, day := range models.Days {
		ds := perDay[day]
		if ds.QualifyingSlots > best.QualifyingSlots ||
			(ds.QualifyingSlots == best.QualifyingSlots && ds.AverageScore > best.AverageScore) {
			best = *ds
		}
	}

	if best.QualifyingSlots == 0 {
		return DayScore{}, false
	}
	return best, true
}

// FormatHour renders a grid hour the way the UI shows it, e.g. 9 -> "9:00 AM",
// 13 -> "1:00 PM".
func FormatHour(hour int) string {
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour
	switch {
	case hour > 12:
		display = hour - 12
	case hour == 0:
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, period)
}
