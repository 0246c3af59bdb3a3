package blobstore

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in a map. Used for tests and throwaway local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, blob []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := ContentRef(blob)
	cp := make([]byte, len(blob))
	copy(cp, blob)

	m.mu.Lock()
	m.blobs[ref] = cp
	m.mu.Unlock()
	return ref, nil
}

func (m *MemoryStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	blob, ok := m.blobs[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[ref]; !ok {
		return ErrBlobNotFound
	}
	delete(m.blobs, ref)
	return nil
}

// Len reports how many blobs are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
