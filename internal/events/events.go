// Package events provides the event bus shelfctl's frontends subscribe to.
// Core components publish state changes here; any view can react without the
// core referencing presentation code.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shelf-labs/shelfctl/internal/models"
)

// EventType defines the types of events that can be emitted.
type EventType string

const (
	EventSessionChanged EventType = "session_changed"
	EventUnauthorized   EventType = "unauthorized"
	EventPageChanged    EventType = "page_changed"
	EventUploadProgress EventType = "upload_progress"
	EventThumbnailReady EventType = "thumbnail_ready"
	EventPreviewChanged EventType = "preview_changed"
)

const (
	defaultBufferSize = 256
	maxBufferSize     = 4096
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// SessionChangedEvent is published after every session write, mirroring the
// synchronous store observers for loosely coupled consumers.
type SessionChangedEvent struct {
	BaseEvent
	Active  bool
	Subject string
}

// UnauthorizedEvent is published once per expiry detection window.
type UnauthorizedEvent struct {
	BaseEvent
}

// PageChangedEvent is published when the file page is replaced.
type PageChangedEvent struct {
	BaseEvent
	Items  []models.FileRecord
	Total  int
	Offset int
	Limit  int
}

// UploadProgressEvent carries whole-number upload percentages.
type UploadProgressEvent struct {
	BaseEvent
	Name    string
	Percent int
}

// ThumbnailReadyEvent is published when a row's thumbnail resolved (or fell
// back to the placeholder).
type ThumbnailReadyEvent struct {
	BaseEvent
	FileID      string
	Path        string
	Placeholder bool
}

// PreviewChangedEvent is published when the active preview is replaced or
// cleared. An empty Path means cleared.
type PreviewChangedEvent struct {
	BaseEvent
	Path  string
	Label string
}

// NewSessionChangedEvent creates a new SessionChangedEvent.
func NewSessionChangedEvent(active bool, subject string) *SessionChangedEvent {
	return &SessionChangedEvent{
		BaseEvent: BaseEvent{EventType: EventSessionChanged, Time: time.Now()},
		Active:    active,
		Subject:   subject,
	}
}

// NewUnauthorizedEvent creates a new UnauthorizedEvent.
func NewUnauthorizedEvent() *UnauthorizedEvent {
	return &UnauthorizedEvent{
		BaseEvent: BaseEvent{EventType: EventUnauthorized, Time: time.Now()},
	}
}

// NewPageChangedEvent creates a new PageChangedEvent.
func NewPageChangedEvent(items []models.FileRecord, total, offset, limit int) *PageChangedEvent {
	return &PageChangedEvent{
		BaseEvent: BaseEvent{EventType: EventPageChanged, Time: time.Now()},
		Items:     items,
		Total:     total,
		Offset:    offset,
		Limit:     limit,
	}
}

// NewUploadProgressEvent creates a new UploadProgressEvent.
func NewUploadProgressEvent(name string, percent int) *UploadProgressEvent {
	return &UploadProgressEvent{
		BaseEvent: BaseEvent{EventType: EventUploadProgress, Time: time.Now()},
		Name:      name,
		Percent:   percent,
	}
}

// NewThumbnailReadyEvent creates a new ThumbnailReadyEvent.
func NewThumbnailReadyEvent(fileID, path string, placeholder bool) *ThumbnailReadyEvent {
	return &ThumbnailReadyEvent{
		BaseEvent:   BaseEvent{EventType: EventThumbnailReady, Time: time.Now()},
		FileID:      fileID,
		Path:        path,
		Placeholder: placeholder,
	}
}

// NewPreviewChangedEvent creates a new PreviewChangedEvent.
func NewPreviewChangedEvent(path, label string) *PreviewChangedEvent {
	return &PreviewChangedEvent{
		BaseEvent: BaseEvent{EventType: EventPreviewChanged, Time: time.Now()},
		Path:      path,
		Label:     label,
	}
}

// EventBus manages event subscriptions and publishing.
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with the specified buffer size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if bufferSize > maxBufferSize {
		bufferSize = maxBufferSize
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Publishing never blocks; events
// are dropped when a subscriber's buffer is full.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Dropped returns the number of events dropped due to full buffers.
func (eb *EventBus) Dropped() int64 {
	return eb.droppedEvents.Load()
}

// Close shuts down the event bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
	eb.subscribers = make(map[EventType][]chan Event)
	eb.all = nil
}
