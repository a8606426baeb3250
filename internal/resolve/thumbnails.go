// Package resolve turns server-side locators into local binary handles: row
// thumbnails and the single inline preview.
package resolve

import (
	"context"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shelf-labs/shelfctl/internal/events"
	"github.com/shelf-labs/shelfctl/internal/models"
	"github.com/shelf-labs/shelfctl/internal/resources"
)

// Placeholder is the text shown for rows without a usable thumbnail.
const Placeholder = "FILE"

// ThumbnailClient resolves thumbnail locators and fetches their content.
type ThumbnailClient interface {
	Thumbnail(ctx context.Context, fileID string) (*models.ThumbnailDescriptor, error)
	FetchURL(ctx context.Context, url string) ([]byte, error)
}

// Thumbnails resolves row thumbnails into registry handles keyed by file id.
// Resolution never fails loudly; any problem degrades the row to the
// placeholder.
type Thumbnails struct {
	client   ThumbnailClient
	registry *resources.Registry
	bus      *events.EventBus
}

// NewThumbnails creates a Thumbnails resolver storing handles in registry.
func NewThumbnails(client ThumbnailClient, registry *resources.Registry, bus *events.EventBus) *Thumbnails {
	return &Thumbnails{client: client, registry: registry, bus: bus}
}

// Fetch resolves the thumbnail for rec and returns the local path, or ""
// with placeholder true when the record has no thumbnail or any step fails.
func (t *Thumbnails) Fetch(ctx context.Context, rec models.FileRecord) (string, bool) {
	if rec.ThumbnailName == "" {
		t.publish(rec.ID, "", true)
		return "", true
	}

	desc, err := t.client.Thumbnail(ctx, rec.ID)
	if err != nil {
		t.publish(rec.ID, "", true)
		return "", true
	}

	data, err := t.client.FetchURL(ctx, desc.URL)
	if err != nil {
		t.publish(rec.ID, "", true)
		return "", true
	}

	handle, err := resources.NewHandle(data, mimetype.Detect(data).Extension())
	if err != nil {
		t.publish(rec.ID, "", true)
		return "", true
	}
	t.registry.Set(rec.ID, handle)

	path := handle.Path()
	t.publish(rec.ID, path, false)
	return path, false
}

func (t *Thumbnails) publish(fileID, path string, placeholder bool) {
	if t.bus != nil {
		t.bus.Publish(events.NewThumbnailReadyEvent(fileID, path, placeholder))
	}
}
