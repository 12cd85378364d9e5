package store

import "context"

// KV is the minimal key-value contract the chat store persists through.
// Values are opaque text; concurrent writers are last-write-wins.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
