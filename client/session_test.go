package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/aryeetea/SyncSpaceScheduling/models"
	"github.com/aryeetea/SyncSpaceScheduling/routes"
	"github.com/aryeetea/SyncSpaceScheduling/storage"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// newTestServer runs the real route wiring over an in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	routes.Store = storage.NewGroupStore(storage.NewMemoryKV())

	app := iris.New()
	app.Validator = validator.New()
	app.Get("/health", routes.Health)
	groups := app.Party("/groups")
	{
		groups.Post("/", routes.CreateGroup)
		groups.Post("/{code}/join", routes.JoinGroup)
		groups.Get("/{code}", routes.GetGroup)
		groups.Put("/{code}/availability", routes.UpdateAvailability)
	}
	if err := app.Build(); err != nil {
		t.Fatalf("building app: %v", err)
	}

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, baseURL string) *Session {
	t.Helper()
	api := NewAPI(baseURL, "")
	return NewSession(quietLogger(), api, NewTemplateStore(t.TempDir()), 0)
}

func TestCreateAdoptsIdentity(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)

	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	group, joined := session.Group()
	if !joined {
		t.Fatal("session should be joined after create")
	}
	if group.Name != "Alice's Group" {
		t.Errorf("unexpected group name %q", group.Name)
	}
	if group.Code == "" || session.MemberID() == "" {
		t.Fatal("create should adopt code and member id")
	}

	// the group is fetchable server-side under the adopted code
	snap, err := NewAPI(srv.URL, "").FetchGroup(context.Background(), group.Code)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Members) != 1 || snap.Members[0].ID != session.MemberID() {
		t.Fatalf("server does not know the adopted member: %+v", snap.Members)
	}
}

func TestJoinFailureLeavesStateUntouched(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)

	err := session.Join(context.Background(), "SYNC-GH0ST1", "Bob")
	if err == nil {
		t.Fatal("joining an unknown group must fail")
	}
	if _, joined := session.Group(); joined {
		t.Fatal("failed join must not adopt group identity")
	}
	if _, err := session.SetStatus(0, 9); err != ErrNotJoined {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}
}

func TestStatusCycle(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	want := []*models.AvailabilityStatus{
		ptr(models.StatusAvailable),
		ptr(models.StatusRemote),
		ptr(models.StatusBusy),
		nil,
		ptr(models.StatusAvailable), // cycles indefinitely
	}
	for i, expected := range want {
		got, err := session.SetStatus(0, 9)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if (got == nil) != (expected == nil) || (got != nil && *got != *expected) {
			t.Fatalf("step %d: expected %v, got %v", i, deref(expected), deref(got))
		}
	}
	session.Flush()
}

func TestSetStatusValidatesCell(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := session.SetStatus(7, 9); err == nil {
		t.Error("day index 7 should be rejected")
	}
	if _, err := session.SetStatus(0, 7); err == nil {
		t.Error("hour 7 is outside the grid")
	}
	if _, err := session.SetStatus(0, 24); err == nil {
		t.Error("hour 24 is outside the grid")
	}
}

func TestEditPersistsToServer(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := session.SetStatus(2, 14); err != nil { // Wednesday 2 PM
		t.Fatalf("set: %v", err)
	}
	session.Flush()

	group, _ := session.Group()
	snap, err := NewAPI(srv.URL, "").FetchGroup(context.Background(), group.Code)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	status := snap.Members[0].Availability[2].Blocks[14-models.FirstHour].Status
	if status == nil || *status != models.StatusAvailable {
		t.Fatal("edit did not reach the server")
	}
}

func TestRefreshReplacesMemberList(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	group, _ := session.Group()

	// Bob joins through his own client
	if _, err := NewAPI(srv.URL, "").JoinGroup(context.Background(), group.Code, "Bob"); err != nil {
		t.Fatalf("bob join: %v", err)
	}

	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	members := session.Members()
	if len(members) != 2 {
		t.Fatalf("expected 2 members after refresh, got %d", len(members))
	}
}

func TestRefreshAfterCloseIsDiscarded(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	group, _ := session.Group()

	if _, err := NewAPI(srv.URL, "").JoinGroup(context.Background(), group.Code, "Bob"); err != nil {
		t.Fatalf("bob join: %v", err)
	}

	session.Close()
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if members := session.Members(); len(members) != 1 {
		t.Fatalf("refresh after close must not apply: got %d members", len(members))
	}
}

func TestFailedPushKeepsLocalState(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// server starts refusing writes
	srv.Close()

	status, err := session.SetStatus(0, 9)
	if err != nil {
		t.Fatalf("local edit should succeed despite a dead server: %v", err)
	}
	if status == nil || *status != models.StatusAvailable {
		t.Fatalf("unexpected status %v", deref(status))
	}
	session.Flush()

	// the optimistic copy is still there
	me := session.Members()[0]
	got := me.Availability[0].Blocks[1].Status
	if got == nil || *got != models.StatusAvailable {
		t.Fatal("failed push must not roll back the local edit")
	}
}

func TestResetClearsWeek(t *testing.T) {
	srv := newTestServer(t)
	session := newTestSession(t, srv.URL)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := session.SetStatus(1, 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	session.Flush()
	if err := session.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	session.Flush()

	group, _ := session.Group()
	snap, err := NewAPI(srv.URL, "").FetchGroup(context.Background(), group.Code)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if models.HasAnyStatus(snap.Members[0].Availability) {
		t.Fatal("reset should persist a fully unset week")
	}
}

func TestCopyLastWeek(t *testing.T) {
	srv := newTestServer(t)
	dir := t.TempDir()
	api := NewAPI(srv.URL, "")
	session := NewSession(quietLogger(), api, NewTemplateStore(dir), 0)
	if err := session.Create(context.Background(), "Alice"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := session.CopyLastWeek(); err != ErrNoTemplate {
		t.Fatalf("expected ErrNoTemplate before any save, got %v", err)
	}

	if _, err := session.SetStatus(0, 9); err != nil {
		t.Fatalf("set: %v", err)
	}
	session.Flush()
	if !session.HasTemplate() {
		t.Fatal("a non-empty week should be retained as the template")
	}

	// reset wipes the current week but not the retained template
	if err := session.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	session.Flush()
	if !session.HasTemplate() {
		t.Fatal("reset must not clear the template")
	}

	if err := session.CopyLastWeek(); err != nil {
		t.Fatalf("copy: %v", err)
	}
	session.Flush()

	me := session.Members()[0]
	got := me.Availability[0].Blocks[1].Status
	if got == nil || *got != models.StatusAvailable {
		t.Fatal("copy-last-week did not restore the saved week")
	}

	// the template survives on disk for a later session of the same member
	group, _ := session.Group()
	resumed := NewSession(quietLogger(), api, NewTemplateStore(dir), 0)
	resumed.Resume(group, session.MemberID(), "Alice")
	if !resumed.HasTemplate() {
		t.Fatal("a resumed session should load the persisted template")
	}
}

func TestPrefsToggleRoundTrip(t *testing.T) {
	dir := t.TempDir()

	prefs, err := LoadPrefs(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prefs.Muted {
		t.Fatal("default should be unmuted")
	}

	if muted, err := prefs.ToggleMute(); err != nil || !muted {
		t.Fatalf("toggle: muted=%v err=%v", muted, err)
	}

	reloaded, err := LoadPrefs(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Muted {
		t.Fatal("mute preference should persist")
	}
}

func ptr(s models.AvailabilityStatus) *models.AvailabilityStatus { return &s }

func deref(s *models.AvailabilityStatus) string {
	if s == nil {
		return "unset"
	}
	return string(*s)
}
