package credstore

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend for tests and ephemeral sessions.
// Setting Err forces every operation to fail with that error.
type MemoryBackend struct {
	// Err, when non-nil, is returned by every operation.
	Err error

	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]string{}}
}

// Get retrieves a single entry.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return "", b.Err
	}
	val, ok := b.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

// Set writes a single entry.
func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.entries[key] = value
	return nil
}

// Delete removes entries. Missing keys are not an error.
func (b *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	for _, k := range keys {
		delete(b.entries, k)
	}
	return nil
}

// Len reports the number of stored entries.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
