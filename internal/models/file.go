// Package models defines the wire types shared across shelfctl packages.
package models

import (
	"strings"
	"time"
)

// SortOrder controls listing order by creation time.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FileRecord is an immutable snapshot of one stored file's server-side
// metadata at fetch time. The client never patches records locally; rename
// and delete trigger a full page refetch instead.
type FileRecord struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Size          int64     `json:"size"`
	ContentType   string    `json:"content_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ThumbnailName string    `json:"thumbnail_name,omitempty"`
}

// IsImage reports whether the declared content type classifies the record
// for inline preview.
func (r FileRecord) IsImage() bool {
	return strings.HasPrefix(r.ContentType, "image/")
}

// FilePage is one page of the remote collection. It is replaced wholesale on
// every successful fetch, never merged incrementally.
type FilePage struct {
	Items []FileRecord `json:"items"`
	Total int          `json:"total"`
}

// PageQuery holds the pagination and sort parameters for file listings.
type PageQuery struct {
	Limit  int
	Offset int
	Sort   SortOrder
}

// DownloadDescriptor is the JSON body GET /files/{id}/download answers with
// when it returns a locator instead of raw bytes.
type DownloadDescriptor struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
}

// ThumbnailDescriptor is returned by GET /files/{id}/thumbnail.
type ThumbnailDescriptor struct {
	URL string `json:"url"`
}

// TokenResponse is the login response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}
