package cache

import (
	"sync"
	"time"
)

// MockStore is a simple in-memory store for testing that implements the
// Store interface with real TTL expiry.
type MockStore struct {
	mu   sync.Mutex
	data map[string]mockItem
}

type mockItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMockStore creates a new mock store for testing.
func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]mockItem),
	}
}

func (m *MockStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, found := m.data[key]
	if !found {
		return nil, false
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		delete(m.data, key)
		return nil, false
	}
	return item.value, true
}

func (m *MockStore) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := mockItem{value: value}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	m.data[key] = item
}

func (m *MockStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]mockItem)
}

func (m *MockStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Items: int64(len(m.data)),
	}
}
