package storage

import (
	"context"
	"sync"
)

// MemoryKV is a mutex-guarded in-process KV. It backs tests and local
// development when no Redis is around.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Update holds the lock across the read-modify-write, so concurrent
// updates on the same key serialize instead of clobbering each other.
func (m *MemoryKV) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current []byte
	if val, ok := m.data[key]; ok {
		current = make([]byte, len(val))
		copy(current, val)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	stored := make([]byte, len(next))
	copy(stored, next)
	m.data[key] = stored
	return nil
}
