package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shelf-labs/shelfctl/internal/events"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	return NewStore(path, nil), path
}

func TestStoreSetAndGet(t *testing.T) {
	store, path := testStore(t)

	tok := token(stdHeader, `{"sub":"alice@example.com"}`)
	if err := store.Set(tok); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !store.Active() {
		t.Error("expected active session after Set")
	}
	if got := store.Token(); got != tok {
		t.Errorf("Token() = %q, want %q", got, tok)
	}
	if got := store.Subject(); got != "alice@example.com" {
		t.Errorf("Subject() = %q, want %q", got, "alice@example.com")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	if string(data) != tok+"\n" {
		t.Errorf("token file content = %q", data)
	}
}

func TestStoreClear(t *testing.T) {
	store, path := testStore(t)

	if err := store.Set(token(stdHeader, `{"sub":"x"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if store.Active() {
		t.Error("expected inactive session after Clear")
	}
	if store.Subject() != "" {
		t.Errorf("Subject() = %q after Clear", store.Subject())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("token file still present after Clear")
	}
}

func TestStoreRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	tok := token(stdHeader, `{"sub":"bob@example.com"}`)
	if err := os.WriteFile(path, []byte(tok+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path, nil)
	store.Restore()
	if !store.Active() {
		t.Error("expected active session after Restore")
	}
	if got := store.Subject(); got != "bob@example.com" {
		t.Errorf("Subject() = %q, want %q", got, "bob@example.com")
	}
}

func TestStoreRestoreMissingFile(t *testing.T) {
	store, _ := testStore(t)
	store.Restore()
	if store.Active() {
		t.Error("expected inactive session when no token file exists")
	}
}

func TestStoreOnChange(t *testing.T) {
	store, _ := testStore(t)

	var seen []Session
	store.OnChange(func(s Session) {
		seen = append(seen, s)
	})

	tok := token(stdHeader, `{"sub":"alice@example.com"}`)
	if err := store.Set(tok); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("observer called %d times, want 2", len(seen))
	}
	if !seen[0].Active() || seen[0].Subject != "alice@example.com" {
		t.Errorf("first notification = %+v", seen[0])
	}
	if seen[1].Active() {
		t.Errorf("second notification should be inactive, got %+v", seen[1])
	}
}

func TestStorePublishesSessionChanged(t *testing.T) {
	bus := events.NewEventBus(16)
	defer bus.Close()
	ch := bus.Subscribe(events.EventSessionChanged)

	path := filepath.Join(t.TempDir(), "token")
	store := NewStore(path, bus)
	if err := store.Set(token(stdHeader, `{"sub":"alice@example.com"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	select {
	case ev := <-ch:
		sc, ok := ev.(*events.SessionChangedEvent)
		if !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
		if !sc.Active || sc.Subject != "alice@example.com" {
			t.Errorf("event = %+v", sc)
		}
	default:
		t.Fatal("no session changed event published")
	}
}

func TestStoreSetOpaqueToken(t *testing.T) {
	store, _ := testStore(t)
	if err := store.Set("opaque-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !store.Active() {
		t.Error("opaque token should still yield an active session")
	}
	if store.Subject() != "" {
		t.Errorf("Subject() = %q, want empty for opaque token", store.Subject())
	}
}
