package driverator

import (
	"context"
	"sync"
	"time"

	"gopkg.in/typ.v4/slices"
)

type memoryEntry struct {
	key       string
	meta      FileMetadata
	writtenAt time.Time
}

// MemoryCache is a non-persistent Cache. It backs tests and serves as the
// fallback when the on-disk store cannot be opened.
type MemoryCache struct {
	mut  sync.Mutex
	data []memoryEntry
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: []memoryEntry{},
		now:  time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string, ttl time.Duration) (*FileMetadata, error) {
	m.mut.Lock()
	defer m.mut.Unlock()

	idx := slices.IndexFunc(m.data, func(e memoryEntry) bool { return e.key == key })
	if idx < 0 {
		return nil, nil
	}
	if m.now().Sub(m.data[idx].writtenAt) >= ttl {
		return nil, nil
	}
	meta := m.data[idx].meta
	return &meta, nil
}

func (m *MemoryCache) Put(ctx context.Context, key string, meta *FileMetadata) error {
	m.mut.Lock()
	defer m.mut.Unlock()

	entry := memoryEntry{key: key, meta: *meta, writtenAt: m.now()}
	idx := slices.IndexFunc(m.data, func(e memoryEntry) bool { return e.key == key })
	if idx >= 0 {
		m.data[idx] = entry
	} else {
		m.data = append(m.data, entry)
	}
	return nil
}

func (m *MemoryCache) Invalidate(ctx context.Context, key string) error {
	m.mut.Lock()
	defer m.mut.Unlock()

	idx := slices.IndexFunc(m.data, func(e memoryEntry) bool { return e.key == key })
	if idx >= 0 {
		slices.Remove(&m.data, idx)
	}
	return nil
}

func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mut.Lock()
	defer m.mut.Unlock()

	m.data = []memoryEntry{}
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}
