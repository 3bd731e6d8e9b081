// internal/pkg/otp/memory_store.go
package otp

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry    *Entry
	deadline time.Time
}

// MemoryStore keeps entries in process. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, msisdn string, entry *Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[msisdn] = memoryItem{entry: entry, deadline: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, msisdn string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[msisdn]
	if !ok {
		return nil, ErrNoEntry
	}
	if s.now().After(item.deadline) {
		delete(s.items, msisdn)
		return nil, ErrNoEntry
	}
	return item.entry, nil
}

func (s *MemoryStore) Delete(_ context.Context, msisdn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, msisdn)
	return nil
}
