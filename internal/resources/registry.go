// Package resources manages the lifetime of fetched binary content.
// Thumbnails and previews are materialized as files in a private cache
// directory; a Handle is the owning reference, and revoking it removes the
// file. Nothing outside this package deletes cache entries, so a leak is
// always a missing Revoke.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const cacheDirName = "shelf"

// Handle is an owning reference to one materialized blob. Revoke is
// idempotent; Path is only valid before Revoke.
type Handle struct {
	mu      sync.Mutex
	path    string
	revoked bool
}

// NewHandle writes data to a fresh file in the cache directory and returns
// its handle. ext, when non-empty, becomes the file extension so image
// viewers can type the content by name.
func NewHandle(data []byte, ext string) (*Handle, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	name := uuid.NewString()
	if ext != "" {
		name += ext
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write cache file: %w", err)
	}
	return &Handle{path: path}, nil
}

// Path returns the file path, or "" after Revoke.
func (h *Handle) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return ""
	}
	return h.path
}

// Revoke removes the backing file. Safe to call more than once.
func (h *Handle) Revoke() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return
	}
	h.revoked = true
	_ = os.Remove(h.path)
}

func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	dir := filepath.Join(base, cacheDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return dir, nil
}

// Registry tracks live handles by key. Setting a key that is already
// occupied revokes the old handle first, so at most one blob per key is ever
// alive.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Set registers handle under key, revoking any previous occupant.
func (r *Registry) Set(key string, handle *Handle) {
	r.mu.Lock()
	old := r.handles[key]
	r.handles[key] = handle
	r.mu.Unlock()

	if old != nil {
		old.Revoke()
	}
}

// Get returns the handle under key, or nil.
func (r *Registry) Get(key string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[key]
}

// Revoke releases the handle under key, if any.
func (r *Registry) Revoke(key string) {
	r.mu.Lock()
	h := r.handles[key]
	delete(r.handles, key)
	r.mu.Unlock()

	if h != nil {
		h.Revoke()
	}
}

// RevokeAll releases every live handle.
func (r *Registry) RevokeAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.Revoke()
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
