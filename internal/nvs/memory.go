package nvs

import (
	"fmt"
	"sort"
	"sync"
)

// Memory is a volatile BlobStore. Values are copied on the way in and out.
type Memory struct {
	mu    sync.RWMutex
	store map[string][]byte
}

var _ BlobStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		store: make(map[string][]byte),
	}
}

func memoryKey(namespace, key string) string {
	return namespace + "/" + key
}

func (m *Memory) Get(namespace, key string) ([]byte, error) {
	if err := checkKey(namespace, key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	val, ok := m.store[memoryKey(namespace, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, key)
	}
	return append([]byte(nil), val...), nil
}

func (m *Memory) Set(namespace, key string, data []byte) error {
	if err := checkKey(namespace, key); err != nil {
		return err
	}
	m.mu.Lock()
	m.store[memoryKey(namespace, key)] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (m *Memory) Delete(namespace, key string) {
	m.mu.Lock()
	delete(m.store, memoryKey(namespace, key))
	m.mu.Unlock()
}

// Keys lists "namespace/key" entries in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.store))
	for k := range m.store {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
