package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/certforge/certforge/internal/apperr"
)

// MemoryStore is an in-memory Store double for tests, satisfying the same
// interface as S3Store without requiring a container.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) objects(bucket string) map[string][]byte {
	objs, ok := m.buckets[bucket]
	if !ok {
		objs = make(map[string][]byte)
		m.buckets[bucket] = objs
	}
	return objs
}

// Put stores data under key in bucket.
func (m *MemoryStore) Put(_ context.Context, bucket, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects(bucket)[key] = cp
	return nil
}

// Get returns the stored bytes for key, or ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects(bucket)[key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, apperr.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether key is present in bucket.
func (m *MemoryStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects(bucket)[key]
	return ok, nil
}

// Delete removes key from bucket. Deleting an absent key is not an error.
func (m *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects(bucket), key)
	return nil
}

// Presign returns a fake URL embedding the TTL actually used, so tests can
// assert clamping behavior without a real signer.
func (m *MemoryStore) Presign(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	ttl = clampTTL(ttl, 15*time.Minute)
	return fmt.Sprintf("memory://%s/%s?ttl=%s", bucket, key, ttl), nil
}

// EnsureBucket creates bucket's namespace if absent.
func (m *MemoryStore) EnsureBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects(bucket)
	return nil
}
