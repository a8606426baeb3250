package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	nethttp "net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/shelf-labs/shelfctl/internal/events"
	"github.com/shelf-labs/shelfctl/internal/models"
	"github.com/shelf-labs/shelfctl/internal/resources"
)

// PreviewKey is the registry key for the single active preview. Showing a
// new preview replaces the handle under this key, so at most one preview
// blob is ever alive.
const PreviewKey = "preview"

var errMissingURL = errors.New("download response carried no url")

// PreviewClient starts downloads and fetches presigned object URLs.
type PreviewClient interface {
	Download(ctx context.Context, fileID string) (*nethttp.Response, error)
	FetchURL(ctx context.Context, url string) ([]byte, error)
}

// Preview resolves a file's content into the single inline preview handle.
// Any failure clears the preview rather than reporting an error.
type Preview struct {
	client   PreviewClient
	registry *resources.Registry
	bus      *events.EventBus
}

// NewPreview creates a Preview resolver storing its handle in registry.
func NewPreview(client PreviewClient, registry *resources.Registry, bus *events.EventBus) *Preview {
	return &Preview{client: client, registry: registry, bus: bus}
}

// Show materializes rec's content and installs it as the active preview,
// returning the local path. The download endpoint answers either with a JSON
// locator pointing at storage or with the bytes directly; both branches end
// in the same handle.
func (p *Preview) Show(ctx context.Context, rec models.FileRecord) (string, error) {
	resp, err := p.client.Download(ctx, rec.ID)
	if err != nil {
		p.Clear()
		return "", err
	}

	data, err := p.readContent(ctx, resp)
	if err != nil {
		p.Clear()
		return "", err
	}

	handle, err := resources.NewHandle(data, mimetype.Detect(data).Extension())
	if err != nil {
		p.Clear()
		return "", err
	}
	p.registry.Set(PreviewKey, handle)

	path := handle.Path()
	if p.bus != nil {
		p.bus.Publish(events.NewPreviewChangedEvent(path, rec.DisplayName))
	}
	return path, nil
}

// Clear drops the active preview, if any.
func (p *Preview) Clear() {
	p.registry.Revoke(PreviewKey)
	if p.bus != nil {
		p.bus.Publish(events.NewPreviewChangedEvent("", ""))
	}
}

func (p *Preview) readContent(ctx context.Context, resp *nethttp.Response) ([]byte, error) {
	defer resp.Body.Close()

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt == "application/json" {
		var desc models.DownloadDescriptor
		if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
			return nil, err
		}
		if desc.URL == "" {
			return nil, errMissingURL
		}
		return p.client.FetchURL(ctx, desc.URL)
	}
	return io.ReadAll(resp.Body)
}
