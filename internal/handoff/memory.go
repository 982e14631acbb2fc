package handoff

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Records are kept serialized so callers
// never share mutable state with the store.
//
// MemoryStore is safe for concurrent use by multiple goroutines.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
	}
}

// Get returns the record under key or ErrNotFound.
func (m *MemoryStore) Get(ctx context.Context, key string) (StagedImage, error) {
	if err := ctx.Err(); err != nil {
		return StagedImage{}, err
	}
	m.mu.RLock()
	b, ok := m.records[key]
	m.mu.RUnlock()
	if !ok {
		return StagedImage{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return unmarshalRecord(b)
}

// Put stores img under key.
func (m *MemoryStore) Put(ctx context.Context, key string, img StagedImage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := marshalRecord(img)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[key] = b
	m.mu.Unlock()
	return nil
}

// Find returns the lowest key with the given prefix and its record.
func (m *MemoryStore) Find(ctx context.Context, prefix string) (string, StagedImage, error) {
	keys, err := m.List(ctx, prefix)
	if err != nil {
		return "", StagedImage{}, err
	}
	for _, k := range keys {
		img, err := m.Get(ctx, k)
		if err == nil {
			return k, img, nil
		}
	}
	return "", StagedImage{}, fmt.Errorf("%w: prefix %q", ErrNotFound, prefix)
}

// List returns the keys starting with prefix, sorted.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// Delete removes the record under key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close drops all records.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.records = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}
