package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"path/filepath"

	"github.com/shelf-labs/shelfctl/internal/models"
)

// DownloadFailedNotice is the fallback for download errors.
const DownloadFailedNotice = "Download failed"

// ErrMissingDownloadURL means the server's locator carried no object URL.
var ErrMissingDownloadURL = errors.New("download URL is missing")

// DownloadClient starts downloads and fetches presigned object URLs.
type DownloadClient interface {
	Download(ctx context.Context, fileID string) (*nethttp.Response, error)
	FetchURL(ctx context.Context, url string) ([]byte, error)
}

// Downloader saves remote files to local disk. The download endpoint answers
// with a JSON locator; the content itself comes from storage.
type Downloader struct {
	client DownloadClient
}

// NewDownloader creates a Downloader fetching through client.
func NewDownloader(client DownloadClient) *Downloader {
	return &Downloader{client: client}
}

// Save downloads rec into destDir and returns the written path. The filename
// preference order is the locator's display name, the record's, the
// locator's storage filename, then "download".
func (d *Downloader) Save(ctx context.Context, rec models.FileRecord, destDir string) (string, error) {
	resp, err := d.client.Download(ctx, rec.ID)
	if err != nil {
		return "", err
	}

	var desc models.DownloadDescriptor
	decodeErr := json.NewDecoder(resp.Body).Decode(&desc)
	resp.Body.Close()
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode download locator: %w", decodeErr)
	}
	if desc.URL == "" {
		return "", ErrMissingDownloadURL
	}

	data, err := d.client.FetchURL(ctx, desc.URL)
	if err != nil {
		return "", err
	}

	name := suggestedName(rec, desc)
	path := filepath.Join(destDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func suggestedName(rec models.FileRecord, desc models.DownloadDescriptor) string {
	for _, name := range []string{desc.DisplayName, rec.DisplayName, desc.Filename} {
		if name != "" {
			return filepath.Base(name)
		}
	}
	return "download"
}
