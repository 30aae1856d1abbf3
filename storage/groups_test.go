package storage

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/aryeetea/SyncSpaceScheduling/models"
)

func newTestStore() *GroupStore {
	return NewGroupStore(NewMemoryKV())
}

func TestCreateGroupAndFetch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	group, memberID, err := store.CreateGroup(ctx, "Study Group", "SYNC-AAA111", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if group.Code != "SYNC-AAA111" || group.Name != "Study Group" {
		t.Fatalf("unexpected group record: %+v", group)
	}
	if memberID == "" {
		t.Fatal("expected a member id for the creator")
	}

	fetched, members, err := store.GetGroup(ctx, "SYNC-AAA111")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Code != group.Code || !fetched.CreatedAt.Equal(group.CreatedAt) {
		t.Fatalf("fetch does not match creation: %+v vs %+v", fetched, group)
	}
	if len(members) != 1 || members[0].ID != memberID || members[0].Name != "Alice" {
		t.Fatalf("unexpected members: %+v", members)
	}
	if !reflect.DeepEqual(members[0].Availability, models.NewEmptyAvailability()) {
		t.Fatal("creator should default to the empty week")
	}
}

func TestCreateGroupConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	if _, _, err := store.CreateGroup(ctx, "First", "SYNC-DUP001", "Alice"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, _, err := store.CreateGroup(ctx, "Second", "SYNC-DUP001", "Bob")
	if !errors.Is(err, ErrGroupExists) {
		t.Fatalf("expected ErrGroupExists, got %v", err)
	}

	// the losing create must not clobber the original
	group, members, err := store.GetGroup(ctx, "SYNC-DUP001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if group.Name != "First" || len(members) != 1 || members[0].Name != "Alice" {
		t.Fatal("conflicting create altered the existing group")
	}
}

func TestJoinUnknownGroup(t *testing.T) {
	store := newTestStore()
	_, _, err := store.JoinGroup(context.Background(), "SYNC-NOPE00", "Bob")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestSequentialJoinsPreserveMembers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	_, aliceID, err := store.CreateGroup(ctx, "Trip", "SYNC-TRIP01", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, bobID, err := store.JoinGroup(ctx, "SYNC-TRIP01", "Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}
	_, carolID, err := store.JoinGroup(ctx, "SYNC-TRIP01", "Carol")
	if err != nil {
		t.Fatalf("join carol: %v", err)
	}

	_, members, err := store.GetGroup(ctx, "SYNC-TRIP01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	wantOrder := []string{aliceID, bobID, carolID}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	empty := models.NewEmptyAvailability()
	for i, member := range members {
		if member.ID != wantOrder[i] {
			t.Errorf("member %d: expected id %s, got %s", i, wantOrder[i], member.ID)
		}
		if !reflect.DeepEqual(member.Availability, empty) {
			t.Errorf("member %s should default to the empty week", member.Name)
		}
	}
	if aliceID == bobID || bobID == carolID || aliceID == carolID {
		t.Fatal("member ids must be unique within a group")
	}
}

func TestSetAvailabilityLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	_, aliceID, err := store.CreateGroup(ctx, "Club", "SYNC-CLUB01", "Alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first := models.NewEmptyAvailability()
	available := models.StatusAvailable
	first[0].Blocks[1].Status = &available // Monday 9

	second := models.NewEmptyAvailability()
	busy := models.StatusBusy
	second[1].Blocks[2].Status = &busy // Tuesday 10

	if err := store.SetAvailability(ctx, "SYNC-CLUB01", aliceID, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SetAvailability(ctx, "SYNC-CLUB01", aliceID, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	_, members, err := store.GetGroup(ctx, "SYNC-CLUB01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got := members[0].Availability
	if got[0].Blocks[1].Status != nil {
		t.Fatal("first write should be fully superseded, not merged")
	}
	if got[1].Blocks[2].Status == nil || *got[1].Blocks[2].Status != models.StatusBusy {
		t.Fatal("second write should be the stored state")
	}
}

func TestSetAvailabilityUnknownMember(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	if _, _, err := store.CreateGroup(ctx, "Club", "SYNC-CLUB02", "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := store.SetAvailability(ctx, "SYNC-CLUB02", "not-a-member", models.NewEmptyAvailability())
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}

	err = store.SetAvailability(ctx, "SYNC-MISSING", "whoever", models.NewEmptyAvailability())
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestConcurrentJoinsBothSurvive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	if _, _, err := store.CreateGroup(ctx, "Busy", "SYNC-RACE01", "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	const joiners = 16
	ids := make([]string, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, id, err := store.JoinGroup(ctx, "SYNC-RACE01", "Joiner")
			if err != nil {
				t.Errorf("join %d: %v", i, err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	_, members, err := store.GetGroup(ctx, "SYNC-RACE01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(members) != joiners+1 {
		t.Fatalf("expected %d members, got %d: a concurrent join was lost", joiners+1, len(members))
	}

	present := make(map[string]bool, len(members))
	for _, member := range members {
		present[member.ID] = true
	}
	for i, id := range ids {
		if !present[id] {
			t.Errorf("joiner %d (id %s) missing from final member list", i, id)
		}
	}
}
