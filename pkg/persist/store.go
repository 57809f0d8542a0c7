// Package persist is the entity store behind stateful endpoints. The
// pipeline renders storage keys itself and treats the store as a plain
// key/value map; cross-request consistency is whatever the backing store
// guarantees. Store failures degrade the affected rule, never the server.
package persist

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key holds no entity.
var ErrNotFound = errors.New("entity not found")

// Store is the persistence adapter consumed by the request pipeline.
// Entities are opaque JSON documents addressed by fully-rendered keys.
type Store interface {
	// Get returns the entity stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores an entity under key. A zero ttl means no expiry.
	Put(ctx context.Context, key string, entity []byte, ttl time.Duration) error

	// Delete removes the entity under key. Deleting an absent key returns
	// ErrNotFound so delete endpoints can answer 404.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection, if any.
	Close() error
}
