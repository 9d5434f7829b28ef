package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/hronboard/internal/common"
)

// MemoryStore keeps objects in process memory. It is used when no S3
// endpoint is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]memoryObject)}
}

func (m *MemoryStore) PutObject(_ context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: no such bucket %s", common.ErrStorage, bucket)
	}
	b[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *MemoryStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryStore) EnsureBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memoryObject)
	}
	return nil
}

func (m *MemoryStore) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.buckets[bucket][key]; !ok {
		return "", common.ErrNotFound
	}
	return fmt.Sprintf("memory://%s/%s?ttl=%s", bucket, key, ttl), nil
}

// Keys lists stored keys of bucket.
func (m *MemoryStore) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.buckets[bucket]))
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	return keys
}
