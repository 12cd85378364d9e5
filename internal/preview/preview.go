// Package preview manages ephemeral preview references for image
// attachments. A reference is only valid inside the owning process and
// must be released when the message or session that holds it goes away.
package preview

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const urlScheme = "preview://"

type entry struct {
	name     string
	mimeType string
	data     []byte
}

// Registry issues and tracks preview references.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Create registers the attachment bytes and returns an opaque reference.
func (r *Registry) Create(name, mimeType string, data []byte) string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		// Entropy exhaustion is not a recoverable state for a preview
		// handle; fall back to a timestamp-only id.
		id = ulid.MustNew(ulid.Timestamp(time.Now()), zeroReader{})
	}
	url := urlScheme + id.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[url] = entry{name: name, mimeType: mimeType, data: data}
	return url
}

// Resolve returns the bytes behind a reference, if still registered.
func (r *Registry) Resolve(url string) ([]byte, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[url]
	if !ok {
		return nil, "", false
	}
	return e.data, e.mimeType, true
}

// Release drops one reference. Releasing an unknown or already released
// reference is a no-op.
func (r *Registry) Release(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, url)
}

// ReleaseAll drops every live reference, for session teardown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]entry)
}

// Len reports the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
