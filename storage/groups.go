package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aryeetea/SyncSpaceScheduling/models"
)

// Sentinel errors the HTTP layer translates to status codes.
var (
	ErrGroupExists    = errors.New("group code already exists")
	ErrGroupNotFound  = errors.New("group not found")
	ErrMemberNotFound = errors.New("member not found in group")
)

// Key scheme, one group per code:
//
//	group:<code>                          group metadata
//	group:<code>:members                  member list (id, name, joinedAt)
//	group:<code>:member:<id>:availability that member's week
func groupKey(code string) string {
	return "group:" + code
}

func membersKey(code string) string {
	return groupKey(code) + ":members"
}

func availabilityKey(code, memberID string) string {
	return groupKey(code) + ":member:" + memberID + ":availability"
}

// memberRecord is what the member list stores; availability lives under
// its own key and is merged in on read.
type memberRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupStore enforces the group/member invariants on top of a KV backend:
// group codes unique at creation, member ids unique within a group, member
// lists append-only, availability owned by exactly one member.
type GroupStore struct {
	kv KV
}

func NewGroupStore(kv KV) *GroupStore {
	return &GroupStore{kv: kv}
}

// CreateGroup persists a new group under code and registers the creator as
// its first member. Fails with ErrGroupExists when the code is taken; the
// check and the write are one atomic step.
func (s *GroupStore) CreateGroup(ctx context.Context, name, code, creatorName string) (*models.Group, string, error) {
	group := models.Group{
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	groupJSON, err := json.Marshal(group)
	if err != nil {
		return nil, "", fmt.Errorf("encoding group: %w", err)
	}

	err = s.kv.Update(ctx, groupKey(code), func(current []byte) ([]byte, error) {
		if current != nil {
			return nil, ErrGroupExists
		}
		return groupJSON, nil
	})
	if err != nil {
		return nil, "", err
	}

	creator := memberRecord{
		ID:       models.NewMemberID(),
		Name:     creatorName,
		JoinedAt: time.Now().UTC(),
	}
	membersJSON, err := json.Marshal([]memberRecord{creator})
	if err != nil {
		return nil, "", fmt.Errorf("encoding members: %w", err)
	}
	if err := s.kv.Set(ctx, membersKey(code), membersJSON); err != nil {
		return nil, "", fmt.Errorf("persisting members: %w", err)
	}

	return &group, creator.ID, nil
}

// JoinGroup appends a new member to an existing group. The append runs
// through KV.Update, so two racing joins both land in the final list.
func (s *GroupStore) JoinGroup(ctx context.Context, code, memberName string) (*models.Group, string, error) {
	group, err := s.getGroupMeta(ctx, code)
	if err != nil {
		return nil, "", err
	}

	joiner := memberRecord{
		ID:       models.NewMemberID(),
		Name:     memberName,
		JoinedAt: time.Now().UTC(),
	}

	err = s.kv.Update(ctx, membersKey(code), func(current []byte) ([]byte, error) {
		members, err := decodeMembers(current)
		if err != nil {
			return nil, err
		}
		members = append(members, joiner)
		return json.Marshal(members)
	})
	if err != nil {
		return nil, "", fmt.Errorf("appending member: %w", err)
	}

	return group, joiner.ID, nil
}

// GetGroup returns the group plus every member merged with their stored
// availability. A member that has never saved gets the empty week; stored
// weeks are normalized onto the full 7x16 grid before they leave the store.
func (s *GroupStore) GetGroup(ctx context.Context, code string) (*models.Group, []models.Member, error) {
	group, err := s.getGroupMeta(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	records, err := s.getMembers(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	members := make([]models.Member, 0, len(records))
	for _, rec := range records {
		member := models.Member{
			ID:       rec.ID,
			Name:     rec.Name,
			JoinedAt: rec.JoinedAt,
		}

		raw, found, err := s.kv.Get(ctx, availabilityKey(code, rec.ID))
		if err != nil {
			return nil, nil, fmt.Errorf("loading availability for %s: %w", rec.ID, err)
		}
		if found {
			var av []models.DayAvailability
			if err := json.Unmarshal(raw, &av); err != nil {
				return nil, nil, fmt.Errorf("decoding availability for %s: %w", rec.ID, err)
			}
			member.Availability = models.Normalize(av)
		} else {
			member.Availability = models.NewEmptyAvailability()
		}

		members = append(members, member)
	}

	return group, members, nil
}

// SetAvailability overwrites the stored week for one member of one group.
// Last write wins; there is no version check.
func (s *GroupStore) SetAvailability(ctx context.Context, code, memberID string, availability []models.DayAvailability) error {
	if _, err := s.getGroupMeta(ctx, code); err != nil {
		return err
	}

	records, err := s.getMembers(ctx, code)
	if err != nil {
		return err
	}
	known := false
	for _, rec := range records {
		if rec.ID == memberID {
			known = true
			break
		}
	}
	if !known {
		return ErrMemberNotFound
	}

	raw, err := json.Marshal(models.Normalize(availability))
	if err != nil {
		return fmt.Errorf("encoding availability: %w", err)
	}
	if err := s.kv.Set(ctx, availabilityKey(code, memberID), raw); err != nil {
		return fmt.Errorf("persisting availability: %w", err)
	}
	return nil
}

func (s *GroupStore) getGroupMeta(ctx context.Context, code string) (*models.Group, error) {
	raw, found, err := s.kv.Get(ctx, groupKey(code))
	if err != nil {
		return nil, fmt.Errorf("loading group: %w", err)
	}
	if !found {
		return nil, ErrGroupNotFound
	}
	var group models.Group
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("decoding group: %w", err)
	}
	return &group, nil
}

func (s *GroupStore) getMembers(ctx context.Context, code string) ([]memberRecord, error) {
	raw, found, err := s.kv.Get(ctx, membersKey(code))
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}
	if !found {
		return nil, nil
	}
	return decodeMembers(raw)
}

func decodeMembers(raw []byte) ([]memberRecord, error) {
	if raw == nil {
		return nil, nil
	}
	var members []memberRecord
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	return members, nil
}
