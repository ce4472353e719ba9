// Package storagetest provides an in-memory object store for tests.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sekkot/portal/internal/storage"
)

var _ storage.Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

func (m *MemoryStorage) Save(ctx context.Context, path string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}

	m.mu.Lock()
	m.objects[path] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[path]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, path)
	return nil
}

func (m *MemoryStorage) PublicURL(path string) string {
	return m.baseURL + "/" + path
}

func (m *MemoryStorage) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if !m.Exists(path) {
		return "", storage.ErrObjectNotFound
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, path, time.Now().Add(expiry).Unix()), nil
}

// Exists reports whether an object is stored at path.
func (m *MemoryStorage) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[path]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
