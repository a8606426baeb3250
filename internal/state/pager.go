// Package state holds the observable client-side view of the remote file
// collection. The Pager is the single owner of the pagination cursor; every
// mutation refetches the page from the server rather than patching locally.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shelf-labs/shelfctl/internal/api"
	"github.com/shelf-labs/shelfctl/internal/events"
	"github.com/shelf-labs/shelfctl/internal/models"
)

// DefaultLimit is the page size until the user changes it.
const DefaultLimit = 10

// Panel texts owned by the list.
const (
	LoginNotice     = "Log in to see your files."
	LoadingNotice   = "Loading..."
	ListErrorNotice = "Unable to load files."
)

// ListClient fetches one page of the remote collection.
type ListClient interface {
	ListFiles(ctx context.Context, q models.PageQuery) (*models.FilePage, error)
}

// SessionReader reports whether a session is active.
type SessionReader interface {
	Active() bool
}

// Feedback receives the list panel text.
type Feedback interface {
	SetListFeedback(string)
}

// Pager owns the pagination cursor over the remote file collection. Items
// and total are an immutable snapshot replaced wholesale on every successful
// fetch. Thread-safe.
type Pager struct {
	client  ListClient
	session SessionReader
	bus     *events.EventBus

	mu     sync.RWMutex
	view   Feedback
	limit  int
	offset int
	sort   models.SortOrder
	items  []models.FileRecord
	total  int
}

// NewPager creates a Pager at offset 0 with the default limit, sorted newest
// first.
func NewPager(client ListClient, session SessionReader, bus *events.EventBus) *Pager {
	return &Pager{
		client:  client,
		session: session,
		bus:     bus,
		limit:   DefaultLimit,
		sort:    models.SortDesc,
	}
}

// SetView attaches the list feedback sink. May be nil.
func (p *Pager) SetView(view Feedback) {
	p.mu.Lock()
	p.view = view
	p.mu.Unlock()
}

// Refresh refetches the current page. Without a session it empties the list
// and shows the login notice, making no network call. On failure the page
// keeps its previous contents and the panel shows the server's message, or
// the generic list notice when there is none.
func (p *Pager) Refresh(ctx context.Context) error {
	if !p.session.Active() {
		p.replace(nil, 0)
		p.setFeedback(LoginNotice)
		return nil
	}

	p.setFeedback(LoadingNotice)

	p.mu.RLock()
	q := models.PageQuery{Limit: p.limit, Offset: p.offset, Sort: p.sort}
	p.mu.RUnlock()

	page, err := p.client.ListFiles(ctx, q)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			p.setFeedback(se.Notice(ListErrorNotice))
		} else {
			p.setFeedback(ListErrorNotice)
		}
		return err
	}

	p.replace(page.Items, page.Total)
	p.setFeedback("")
	return nil
}

// SetLimit changes the page size, returns to the first page, and refetches.
// A stale offset under a new page size would start mid-page.
func (p *Pager) SetLimit(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = DefaultLimit
	}
	p.mu.Lock()
	p.limit = limit
	p.offset = 0
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// SetSort changes the sort order, returns to the first page, and refetches.
// Keeping the old offset under a new order would land on an arbitrary slice
// of the collection.
func (p *Pager) SetSort(ctx context.Context, sort models.SortOrder) error {
	if sort != models.SortAsc {
		sort = models.SortDesc
	}
	p.mu.Lock()
	p.sort = sort
	p.offset = 0
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// NextPage advances one page and refetches. A no-op when the next offset
// would start at or past the known total.
func (p *Pager) NextPage(ctx context.Context) error {
	p.mu.Lock()
	next := p.offset + p.limit
	if next >= p.total {
		p.mu.Unlock()
		return nil
	}
	p.offset = next
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// PrevPage goes back one page, clamped at 0, and refetches.
func (p *Pager) PrevPage(ctx context.Context) error {
	p.mu.Lock()
	p.offset = p.offset - p.limit
	if p.offset < 0 {
		p.offset = 0
	}
	p.mu.Unlock()
	return p.Refresh(ctx)
}

// Reset returns to the initial empty state without a network call.
func (p *Pager) Reset() {
	p.mu.Lock()
	p.offset = 0
	p.items = nil
	p.total = 0
	items, total, offset, limit := p.items, p.total, p.offset, p.limit
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(events.NewPageChangedEvent(items, total, offset, limit))
	}
}

// Items returns a copy of the current page's records.
func (p *Pager) Items() []models.FileRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	items := make([]models.FileRecord, len(p.items))
	copy(items, p.items)
	return items
}

// Total returns the collection size reported by the last fetch.
func (p *Pager) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// Offset returns the current cursor offset.
func (p *Pager) Offset() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset
}

// Limit returns the current page size.
func (p *Pager) Limit() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.limit
}

// Sort returns the current sort order.
func (p *Pager) Sort() models.SortOrder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sort
}

// PageIndicator renders the "Page X of Y" label. An empty collection still
// reads "Page 1 of 1".
func (p *Pager) PageIndicator() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	current := p.offset/p.limit + 1
	totalPages := (p.total + p.limit - 1) / p.limit
	if totalPages < 1 {
		totalPages = 1
	}
	return fmt.Sprintf("Page %d of %d", current, totalPages)
}

func (p *Pager) replace(items []models.FileRecord, total int) {
	p.mu.Lock()
	p.items = items
	p.total = total
	offset, limit := p.offset, p.limit
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(events.NewPageChangedEvent(items, total, offset, limit))
	}
}

func (p *Pager) setFeedback(msg string) {
	p.mu.RLock()
	view := p.view
	p.mu.RUnlock()
	if view != nil {
		view.SetListFeedback(msg)
	}
}
