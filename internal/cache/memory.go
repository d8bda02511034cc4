package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryItem struct {
	payload   []byte
	writtenAt time.Time
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	settings
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]memoryItem),
		settings: newSettings(opts),
	}
}

func (s *MemoryStore) Backend() string {
	return "memory"
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok || !s.fresh(item.writtenAt) {
		return nil, false
	}

	out := make([]byte, len(item.payload))
	copy(out, item.payload)
	return out, true
}

func (s *MemoryStore) Put(ctx context.Context, key string, payload []byte) {
	if payload == nil {
		s.logger.Warn("Refusing to cache empty payload", zap.String("cache_key", key))
		return
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{payload: stored, writtenAt: s.now()}
}

func (s *MemoryStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, item := range s.items {
		if s.expired(item.writtenAt) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
