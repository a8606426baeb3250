package events

import (
	"testing"
	"time"

	"github.com/shelf-labs/shelfctl/internal/models"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventPageChanged)

	items := []models.FileRecord{{ID: "f1", DisplayName: "report.pdf", Size: 1024}}
	bus.Publish(NewPageChangedEvent(items, 47, 0, 10))

	select {
	case received := <-ch:
		page, ok := received.(*PageChangedEvent)
		if !ok {
			t.Fatal("Expected PageChangedEvent")
		}
		if page.Total != 47 {
			t.Errorf("Expected total 47, got %d", page.Total)
		}
		if len(page.Items) != 1 || page.Items[0].ID != "f1" {
			t.Errorf("Unexpected items: %+v", page.Items)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventSessionChanged)
	ch2 := bus.Subscribe(EventSessionChanged)

	bus.Publish(NewSessionChangedEvent(true, "alice@example.com"))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			sess, ok := received.(*SessionChangedEvent)
			if !ok {
				t.Fatalf("Subscriber %d: expected SessionChangedEvent", i)
			}
			if !sess.Active || sess.Subject != "alice@example.com" {
				t.Errorf("Subscriber %d: unexpected event: %+v", i, sess)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.SubscribeAll()

	bus.Publish(NewUnauthorizedEvent())
	bus.Publish(NewUploadProgressEvent("data.bin", 42))

	types := make([]EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case received := <-ch:
			types = append(types, received.Type())
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Timeout waiting for event")
		}
	}

	if types[0] != EventUnauthorized || types[1] != EventUploadProgress {
		t.Errorf("Unexpected event order: %v", types)
	}
}

func TestEventBus_DropOnFullBuffer(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	_ = bus.Subscribe(EventUploadProgress)

	bus.Publish(NewUploadProgressEvent("a", 1))
	bus.Publish(NewUploadProgressEvent("a", 2))

	if bus.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", bus.Dropped())
	}
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe(EventPreviewChanged)
	bus.Close()

	// Must not panic.
	bus.Publish(NewPreviewChangedEvent("", ""))

	if _, open := <-ch; open {
		t.Error("Channel should be closed")
	}
}
