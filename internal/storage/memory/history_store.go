package memory

import (
	"context"
	"sort"
	"sync"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RecordedEntry // keyed by entry_id
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[string]*domain.RecordedEntry),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *HistoryStore) Insert(_ context.Context, e *domain.RecordedEntry) error {
	if e == nil || e.EntryID == "" || e.SessionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EntryID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.EntryID] = &copy
	return nil
}

// GetBySession retrieves all entries of a session, ordered by week ASC.
func (s *HistoryStore) GetBySession(_ context.Context, sessionID string) ([]*domain.RecordedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RecordedEntry
	for _, e := range s.data {
		if e.SessionID == sessionID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Entry.Week < result[j].Entry.Week
	})
	return result, nil
}

// GetByProduct retrieves all entries for a product, ordered by recorded_at, week ASC.
func (s *HistoryStore) GetByProduct(_ context.Context, productID string) ([]*domain.RecordedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RecordedEntry
	for _, e := range s.data {
		if e.ProductID == productID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].RecordedAt.Equal(result[j].RecordedAt) {
			return result[i].RecordedAt.Before(result[j].RecordedAt)
		}
		return result[i].Entry.Week < result[j].Entry.Week
	})
	return result, nil
}

var _ storage.HistoryStore = (*HistoryStore)(nil)
