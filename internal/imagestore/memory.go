package imagestore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryStore keeps images in memory. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	prefix  string
	baseURL string
	objects map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(prefix, baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://images"
	}
	return &MemoryStore{
		prefix:  prefix,
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStore) Upload(_ context.Context, upload Upload) (Image, error) {
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	key := ObjectKey(m.prefix, upload.ContentType)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return Image{URL: m.baseURL + "/" + key, Key: key}, nil
}

// Delete is idempotent.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored images.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
