package storage

import (
	"context"
	"sync"

	"marketplace-session-layer/internal/ports"
)

// MemoryBackend keeps values in process memory
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

var _ ports.KeyValueBackend = (*MemoryBackend)(nil)

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(value), true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = cloneBytes(value)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.values, key)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }

func cloneBytes(b []byte) []byte {
	dup := make([]byte, len(b))
	copy(dup, b)
	return dup
}
