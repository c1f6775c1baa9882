package settings

import (
	"context"
	"sync"
)

// MemoryBackend is a minimal in-memory Backend intended for tests and
// examples. It makes no synchronization promises beyond a mutex-guarded map.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: map[string]any{}}
}

// Get returns the stored values for the requested keys. Keys never written
// are simply absent from the result.
func (b *MemoryBackend) Get(_ context.Context, keys []string) (map[string]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := b.values[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

// Set stores all given values.
func (b *MemoryBackend) Set(_ context.Context, values map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, value := range values {
		b.values[key] = value
	}
	return nil
}

// Snapshot returns a copy of everything stored, for assertions in tests.
func (b *MemoryBackend) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.values))
	for key, value := range b.values {
		out[key] = value
	}
	return out
}
