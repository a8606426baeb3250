package session

import (
	"sync"
	"time"

	"github.com/shelf-labs/shelfctl/internal/events"
)

// ExpiredNotice is shown in the auth and list panels when the session dies.
const ExpiredNotice = "Session expired. Please log in."

// DefaultWindow is the expiry detection window. One expired token makes
// every in-flight request (list fetch plus N thumbnail fetches) observe 401
// near-simultaneously; triggers inside the window are absorbed.
const DefaultWindow = 500 * time.Millisecond

// PageResetter returns the collection to its initial empty state without a
// network call.
type PageResetter interface {
	Reset()
}

// ResourceRevoker releases every live binary handle.
type ResourceRevoker interface {
	RevokeAll()
}

// FeedbackSink receives the user-visible panel texts.
type FeedbackSink interface {
	SetAuthFeedback(string)
	SetListFeedback(string)
	SetUploadFeedback(string)
}

// Handler is the debounced reaction to session expiry. It is a two-state
// machine, idle and cooling-down, keyed off an injectable clock so tests can
// advance a virtual one. A trigger during cooldown has zero observable
// effect; the reset is idempotent, not merely rate limited.
type Handler struct {
	mu     sync.Mutex
	store  *Store
	pager  PageResetter
	res    ResourceRevoker
	view   FeedbackSink
	bus    *events.EventBus
	window time.Duration
	now    func() time.Time
	until  time.Time // cooling down while now() < until
}

// NewHandler creates a Handler around store. Collaborators are attached with
// Bind, after they exist.
func NewHandler(store *Store, window time.Duration, bus *events.EventBus) *Handler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Handler{
		store:  store,
		window: window,
		bus:    bus,
		now:    time.Now,
	}
}

// Bind attaches the components the reset acts on. Any of them may be nil.
func (h *Handler) Bind(pager PageResetter, res ResourceRevoker, view FeedbackSink) {
	h.mu.Lock()
	h.pager = pager
	h.res = res
	h.view = view
	h.mu.Unlock()
}

// SetClock replaces the clock. Intended for tests.
func (h *Handler) SetClock(now func() time.Time) {
	h.mu.Lock()
	h.now = now
	h.mu.Unlock()
}

// Trigger runs the expiry reset once per detection window: clear the
// session, return the pager to offset 0 with an empty page, revoke all
// binary handles, and set the expiry notice in the auth and list panels
// while clearing the upload panel. Repeat triggers inside the window are
// no-ops; the machine re-arms by itself once the window passes.
func (h *Handler) Trigger() {
	h.mu.Lock()
	if h.now().Before(h.until) {
		h.mu.Unlock()
		return
	}
	h.until = h.now().Add(h.window)
	pager, res, view := h.pager, h.res, h.view
	h.mu.Unlock()

	_ = h.store.Clear()
	if pager != nil {
		pager.Reset()
	}
	if res != nil {
		res.RevokeAll()
	}
	if view != nil {
		view.SetAuthFeedback(ExpiredNotice)
		view.SetListFeedback(ExpiredNotice)
		view.SetUploadFeedback("")
	}
	if h.bus != nil {
		h.bus.Publish(events.NewUnauthorizedEvent())
	}
}

// CoolingDown reports whether a trigger would currently be absorbed.
func (h *Handler) CoolingDown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now().Before(h.until)
}
