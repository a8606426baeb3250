package session

import (
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingPager struct {
	resets int
}

func (p *recordingPager) Reset() { p.resets++ }

type recordingRevoker struct {
	revokes int
}

func (r *recordingRevoker) RevokeAll() { r.revokes++ }

type recordingView struct {
	auth, list, upload []string
}

func (v *recordingView) SetAuthFeedback(s string)   { v.auth = append(v.auth, s) }
func (v *recordingView) SetListFeedback(s string)   { v.list = append(v.list, s) }
func (v *recordingView) SetUploadFeedback(s string) { v.upload = append(v.upload, s) }

func testHandler(t *testing.T) (*Handler, *Store, *recordingPager, *recordingRevoker, *recordingView, *fakeClock) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "token"), nil)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	h := NewHandler(store, DefaultWindow, nil)
	h.SetClock(clock.now)
	pager := &recordingPager{}
	res := &recordingRevoker{}
	view := &recordingView{}
	h.Bind(pager, res, view)
	return h, store, pager, res, view, clock
}

func TestTriggerResetsEverything(t *testing.T) {
	h, store, pager, res, view, _ := testHandler(t)
	if err := store.Set(token(stdHeader, `{"sub":"alice@example.com"}`)); err != nil {
		t.Fatal(err)
	}

	h.Trigger()

	if store.Active() {
		t.Error("session still active after trigger")
	}
	if pager.resets != 1 {
		t.Errorf("pager resets = %d, want 1", pager.resets)
	}
	if res.revokes != 1 {
		t.Errorf("resource revokes = %d, want 1", res.revokes)
	}
	if len(view.auth) != 1 || view.auth[0] != ExpiredNotice {
		t.Errorf("auth feedback = %v", view.auth)
	}
	if len(view.list) != 1 || view.list[0] != ExpiredNotice {
		t.Errorf("list feedback = %v", view.list)
	}
	if len(view.upload) != 1 || view.upload[0] != "" {
		t.Errorf("upload feedback = %v", view.upload)
	}
}

func TestTriggerDebounced(t *testing.T) {
	h, _, pager, res, view, clock := testHandler(t)

	h.Trigger()
	if !h.CoolingDown() {
		t.Fatal("expected cooldown after first trigger")
	}

	clock.advance(100 * time.Millisecond)
	h.Trigger()
	clock.advance(100 * time.Millisecond)
	h.Trigger()

	if pager.resets != 1 {
		t.Errorf("pager resets = %d, want 1 inside window", pager.resets)
	}
	if res.revokes != 1 {
		t.Errorf("resource revokes = %d, want 1 inside window", res.revokes)
	}
	if len(view.auth) != 1 {
		t.Errorf("auth feedback set %d times, want 1", len(view.auth))
	}
}

func TestTriggerRearmsAfterWindow(t *testing.T) {
	h, _, pager, _, _, clock := testHandler(t)

	h.Trigger()
	clock.advance(DefaultWindow)
	if h.CoolingDown() {
		t.Fatal("expected handler to re-arm once the window passed")
	}

	h.Trigger()
	if pager.resets != 2 {
		t.Errorf("pager resets = %d, want 2 across two windows", pager.resets)
	}
}

func TestTriggerWithNilCollaborators(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token"), nil)
	h := NewHandler(store, 0, nil)
	h.Trigger() // must not panic before Bind
}
