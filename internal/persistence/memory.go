package persistence

import (
	"context"
	"sync"

	"github.com/SYNC-360/kravet-scraper/internal/database"
	"github.com/SYNC-360/kravet-scraper/internal/events"
)

// MemorySink keeps the latest row per SKU in memory.
type MemorySink struct {
	mu      sync.Mutex
	items   map[string]*database.Item
	upserts int
	// Fail, when set, decides per SKU whether the upsert is rejected.
	Fail func(sku string) error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{items: make(map[string]*database.Item)}
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Upsert(ctx context.Context, env *events.Envelope) error {
	item, err := BuildItem(env.Record)
	if err != nil {
		return err
	}
	if s.Fail != nil {
		if err := s.Fail(item.VendorItemID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.VendorItemID] = item
	s.upserts++
	return nil
}

func (s *MemorySink) Get(sku string) (*database.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[sku]
	return item, ok
}

func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Upserts counts calls that reached the store.
func (s *MemorySink) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}
