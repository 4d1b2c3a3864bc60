// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

// Kinds of snapshots the client keeps.
const (
	KindProjects = "projects"
	KindProject  = "project"
	KindRevision = "revision"
	KindHistory  = "history"
)

// Backend is the interface all snapshot stores must satisfy. A snapshot is
// the last successful response for a (kind, key) pair.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save stores v as JSON, replacing any earlier snapshot.
	Save(ctx context.Context, kind, key string, v any) error
	// Load decodes the snapshot into out and returns when it was saved.
	Load(ctx context.Context, kind, key string, out any) (time.Time, error)
}
