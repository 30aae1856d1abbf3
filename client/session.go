package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aryeetea/SyncSpaceScheduling/models"
)

// DefaultRefreshInterval matches the original client's 5-second poll.
const DefaultRefreshInterval = 5 * time.Second

// ErrNotJoined is returned by operations that need an active group session.
var ErrNotJoined = errors.New("not joined to a group")

// ErrNoTemplate is returned by CopyLastWeek when no prior non-empty week
// has been retained for this member.
var ErrNoTemplate = errors.New("no saved week to copy from")

// Session is the client-side sync state machine. It owns the local view of
// one group: the active member's identity, the last-fetched snapshot of
// all members, and the retained last-week template.
//
// Edits apply to the in-memory copy immediately and are pushed to the
// server asynchronously; the periodic refresh replaces the member list
// with the server's version wholesale. The two flows race benignly: the
// active member is the sole writer of its own availability, so a stale
// snapshot is re-asserted by the in-flight push and the next poll
// converges. A failed push keeps the local copy as the source of truth.
type Session struct {
	log       *slog.Logger
	api       *API
	templates *TemplateStore
	interval  time.Duration

	mu         sync.Mutex
	joined     bool
	closed     bool
	group      models.Group
	memberID   string
	memberName string
	members    []models.Member
	template   []models.DayAvailability

	pushes sync.WaitGroup
}

// NewSession builds a session around an API client. templates may be nil
// to disable last-week retention. interval <= 0 selects the default.
func NewSession(logger *slog.Logger, api *API, templates *TemplateStore, interval time.Duration) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Session{
		log:       logger,
		api:       api,
		templates: templates,
		interval:  interval,
	}
}

// Create makes a new group with a freshly generated code, named after the
// creator, and adopts the returned identity. On any failure the session
// state is left untouched.
func (s *Session) Create(ctx context.Context, userName string) error {
	code := models.GenerateGroupCode()
	groupName := userName + "'s Group"

	result, err := s.api.CreateGroup(ctx, groupName, userName, code)
	if err != nil {
		return err
	}

	s.adopt(result.Group, result.MemberID, userName)
	return nil
}

// Join adds this user to an existing group and adopts the returned
// identity. On any failure the session state is left untouched.
func (s *Session) Join(ctx context.Context, code, userName string) error {
	result, err := s.api.JoinGroup(ctx, code, userName)
	if err != nil {
		return err
	}

	s.adopt(result.Group, result.MemberID, userName)
	return nil
}

// Resume re-enters a group with an identity obtained earlier, without a
// server round-trip. The next Refresh pulls the authoritative snapshot.
func (s *Session) Resume(group models.Group, memberID, memberName string) {
	s.adopt(group, memberID, memberName)
}

func (s *Session) adopt(group models.Group, memberID, memberName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = true
	s.group = group
	s.memberID = memberID
	s.memberName = memberName
	s.members = []models.Member{{
		ID:           memberID,
		Name:         memberName,
		Availability: models.NewEmptyAvailability(),
	}}
	if tpl, err := s.templates.Load(memberID); err == nil && tpl != nil {
		s.template = tpl
	}
}

// Refresh fetches the full group snapshot and replaces the local member
// list with the server's version. Results arriving after Close, or after
// the session moved to another group, are discarded.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.joined {
		s.mu.Unlock()
		return ErrNotJoined
	}
	code := s.group.Code
	s.mu.Unlock()

	snap, err := s.api.FetchGroup(ctx, code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.joined || s.group.Code != code {
		return nil
	}
	s.group = snap.Group
	s.members = snap.Members
	s.captureTemplateLocked()
	return nil
}

// Run polls Refresh on a fixed interval until the context is cancelled or
// the session is closed. A failed poll is logged and retried on the next
// tick; it never stops the loop.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.isClosed() {
				return
			}
			if err := s.Refresh(ctx); err != nil {
				s.log.Error("refresh failed, will retry next tick", "error", err)
			}
		}
	}
}

// SetStatus cycles the active member's cell at (dayIndex, hour) one step
// through unset -> available -> remote -> busy -> unset, applies it
// locally, and pushes the whole week asynchronously. Returns the new
// status (nil for unset).
func (s *Session) SetStatus(dayIndex, hour int) (*models.AvailabilityStatus, error) {
	if dayIndex < 0 || dayIndex >= len(models.Days) {
		return nil, fmt.Errorf("day index %d out of range", dayIndex)
	}
	if hour < models.FirstHour || hour > models.LastHour {
		return nil, fmt.Errorf("hour %d outside the %d..%d grid", hour, models.FirstHour, models.LastHour)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.joined {
		return nil, ErrNotJoined
	}

	me := s.activeMemberLocked()
	block := &me.Availability[dayIndex].Blocks[hour-models.FirstHour]
	block.Status = nextStatus(block.Status)

	s.captureTemplateLocked()
	s.pushLocked(models.CloneAvailability(me.Availability))
	return block.Status, nil
}

// Reset clears the active member's week back to fully unset and persists
// the empty structure.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.joined {
		return ErrNotJoined
	}

	me := s.activeMemberLocked()
	me.Availability = models.NewEmptyAvailability()
	s.pushLocked(models.CloneAvailability(me.Availability))
	return nil
}

// CopyLastWeek clones the retained template into the current week and
// persists it. The clone shares no structure with the template, so later
// edits cannot corrupt it.
func (s *Session) CopyLastWeek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.joined {
		return ErrNotJoined
	}
	if s.template == nil {
		return ErrNoTemplate
	}

	me := s.activeMemberLocked()
	me.Availability = models.CloneAvailability(s.template)
	s.pushLocked(models.CloneAvailability(me.Availability))
	return nil
}

// Close tears the session down: no further refreshes are scheduled and
// any in-flight refresh result is discarded rather than applied.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Flush blocks until all in-flight availability pushes have resolved.
func (s *Session) Flush() {
	s.pushes.Wait()
}

// Group returns the current group metadata.
func (s *Session) Group() (models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group, s.joined
}

// MemberID returns the active member's id.
func (s *Session) MemberID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberID
}

// Members returns a deep copy of the last-known member snapshot.
func (s *Session) Members() []models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Member, len(s.members))
	for i, m := range s.members {
		out[i] = m
		out[i].Availability = models.CloneAvailability(m.Availability)
	}
	return out
}

// HasTemplate reports whether a last-week template is available to copy.
func (s *Session) HasTemplate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.template != nil
}

// activeMemberLocked returns the active member entry, synthesizing one
// with an empty week if the latest snapshot does not contain it yet.
func (s *Session) activeMemberLocked() *models.Member {
	for i := range s.members {
		if s.members[i].ID == s.memberID {
			if s.members[i].Availability == nil {
				s.members[i].Availability = models.NewEmptyAvailability()
			}
			return &s.members[i]
		}
	}
	s.members = append(s.members, models.Member{
		ID:           s.memberID,
		Name:         s.memberName,
		Availability: models.NewEmptyAvailability(),
	})
	return &s.members[len(s.members)-1]
}

// captureTemplateLocked retains the active member's week as the last-week
// template whenever it is non-empty.
func (s *Session) captureTemplateLocked() {
	for i := range s.members {
		if s.members[i].ID != s.memberID {
			continue
		}
		if models.HasAnyStatus(s.members[i].Availability) {
			s.template = models.CloneAvailability(s.members[i].Availability)
			if err := s.templates.Save(s.memberID, s.template); err != nil {
				s.log.Error("saving last-week template failed", "error", err)
			}
		}
		return
	}
}

// pushLocked persists the given week for the active member in the
// background. A failure is logged; the local copy stays authoritative
// until the next successful push or refresh.
func (s *Session) pushLocked(availability []models.DayAvailability) {
	code, memberID := s.group.Code, s.memberID

	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
		defer cancel()
		if err := s.api.SaveAvailability(ctx, code, memberID, availability); err != nil {
			s.log.Error("availability push failed, keeping local copy", "error", err)
		}
	}()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// nextStatus advances one step in the per-cell cycle
// unset -> available -> remote -> busy -> unset.
func nextStatus(current *models.AvailabilityStatus) *models.AvailabilityStatus {
	var next models.AvailabilityStatus
	switch {
	case current == nil:
		next = models.StatusAvailable
	case *current == models.StatusAvailable:
		next = models.StatusRemote
	case *current == models.StatusRemote:
		next = models.StatusBusy
	default:
		return nil
	}
	return &next
}
