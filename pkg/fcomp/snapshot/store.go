// Package snapshot persists component state so an element can resume where
// it left off after the process restarts.
//
// A snapshot is keyed by component name and element key. Stores hold opaque
// bytes; Encode and Decode turn component state into those bytes using a
// JSON or MessagePack codec.
package snapshot

import (
	"context"
	"errors"
	"time"
)

// Store persists snapshots. Implementations must be safe for concurrent use.
type Store interface {
	// Save stores data for (component, key), replacing any previous value.
	Save(ctx context.Context, component, key string, data []byte) error

	// Load retrieves a snapshot. Returns ErrNotFound if none exists.
	Load(ctx context.Context, component, key string) ([]byte, error)

	// List returns metadata for a component's snapshots, ordered by sequence.
	// Returns an empty slice (not an error) if there are none.
	List(ctx context.Context, component string) ([]Info, error)

	// Delete removes one snapshot. Missing snapshots are not an error.
	Delete(ctx context.Context, component, key string) error

	// DeleteComponent removes every snapshot of a component.
	DeleteComponent(ctx context.Context, component string) error

	// Close releases any resources.
	Close() error
}

// Info describes a stored snapshot without loading it.
type Info struct {
	Component string
	Key       string
	// Sequence increases with every save within a component.
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")

	// ErrVersionMismatch indicates a snapshot written by an incompatible format.
	ErrVersionMismatch = errors.New("snapshot version mismatch")

	// ErrUnknownCodec indicates a codec name with no registration.
	ErrUnknownCodec = errors.New("unknown snapshot codec")
)
