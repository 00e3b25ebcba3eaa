package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
)

// MemoryStore es el ledger en memoria para tests y LEDGER_DRIVER=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]models.LedgerEntry{}}
}

func (s *MemoryStore) Get(_ context.Context, orderID string) (*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *MemoryStore) Upsert(_ context.Context, orderID string, mark Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[orderID]
	entry.OrderID = orderID
	entry.LastCheckedAt = mark.CheckedAt.UTC()
	entry.ProcessedForPrint = mark.ProcessedForPrint
	entry.PrintStatus = mark.PrintStatus
	entry.LastKnownUpdatedDate = mark.UpdatedDate
	s.entries[orderID] = entry
	return nil
}

func (s *MemoryStore) IncrementReprintCount(_ context.Context, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[orderID]
	if !ok {
		return 0, fmt.Errorf("increment reprint count for %s: %w", orderID, ErrNotFound)
	}
	entry.ReprintCount++
	s.entries[orderID] = entry
	return entry.ReprintCount, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.entries))
	s.entries = map[string]models.LedgerEntry{}
	return n, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastCheckedAt.Equal(out[j].LastCheckedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].LastCheckedAt.After(out[j].LastCheckedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
