// internal/storage/memory/memory.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/onemorerev/client/internal/storage"
)

type entry struct {
	payload   []byte
	fetchedAt time.Time
}

// Backend keeps snapshots in a map for the lifetime of the process
type Backend struct {
	entries map[string]entry
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]entry)
	return nil
}

func (b *Backend) Save(_ context.Context, kind, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[kind+"/"+key] = entry{payload: data, fetchedAt: b.now()}
	return nil
}

func (b *Backend) Load(_ context.Context, kind, key string, out any) (time.Time, error) {
	b.mu.RLock()
	e, ok := b.entries[kind+"/"+key]
	b.mu.RUnlock()
	if !ok {
		return time.Time{}, storage.ErrNotFound
	}
	if err := json.Unmarshal(e.payload, out); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return e.fetchedAt, nil
}
