package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process KeyValueStore. Contents are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	closed bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

// Get implements KeyValueStore. The returned slice is a copy.
func (m *MemoryStore) Get(_ context.Context, owner, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[owner][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements KeyValueStore.
func (m *MemoryStore) Set(_ context.Context, owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	byKey, ok := m.data[owner]
	if !ok {
		byKey = make(map[string][]byte)
		m.data[owner] = byKey
	}
	byKey[key] = append([]byte(nil), value...)
	return nil
}

// Owners implements OwnerLister, sorted by owner.
func (m *MemoryStore) Owners(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var owners []string
	for owner, byKey := range m.data {
		if _, ok := byKey[key]; ok {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
