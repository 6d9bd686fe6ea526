package cache

import (
	"sync"
	"time"
)

// Backend is the key-value capability the opportunities cache needs. Values
// are opaque bytes so backends can be swapped (in-memory, redis, memcached)
// without the cache layer caring about encoding.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
	Has(key string) (bool, error)
	Delete(key string) (bool, error)
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

// Memory is a minimal in-process TTL backend safe for concurrent access.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.now().After(it.expiration) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return it.value, true, nil
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryItem{value: value, expiration: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Has(key string) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

func (m *Memory) Delete(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return true, nil
}
