package memory

import (
	"context"
	"sort"
	"sync"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data []*domain.StrategyOutcome
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{}
}

// Insert appends one step outcome.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.StrategyOutcome) error {
	if o == nil || o.SessionID == "" || o.Strategy == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *o
	s.data = append(s.data, &copy)
	return nil
}

// GetBySession retrieves all outcomes of a session, ordered by week ASC.
func (s *OutcomeStore) GetBySession(_ context.Context, sessionID string) ([]*domain.StrategyOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyOutcome
	for _, o := range s.data {
		if o.SessionID == sessionID {
			copy := *o
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Week < result[j].Week
	})
	return result, nil
}

// SummarizeByStrategy aggregates outcomes per strategy, ordered by strategy name.
func (s *OutcomeStore) SummarizeByStrategy(_ context.Context, productID string) ([]*domain.StrategySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStrategy := make(map[string]*domain.StrategySummary)
	for _, o := range s.data {
		if productID != "" && o.ProductID != productID {
			continue
		}

		sum, ok := byStrategy[o.Strategy]
		if !ok {
			sum = &domain.StrategySummary{
				Strategy:    o.Strategy,
				MaxEarnings: o.Earnings,
				MinEarnings: o.Earnings,
			}
			byStrategy[o.Strategy] = sum
		}

		sum.Steps++
		// running sums; divided below
		sum.MeanEarnings += o.Earnings
		sum.MeanSales += float64(o.Sales)
		sum.MeanDemand += o.Demand
		sum.MaxEarnings = max(sum.MaxEarnings, o.Earnings)
		sum.MinEarnings = min(sum.MinEarnings, o.Earnings)
	}

	result := make([]*domain.StrategySummary, 0, len(byStrategy))
	for _, sum := range byStrategy {
		n := float64(sum.Steps)
		sum.MeanEarnings /= n
		sum.MeanSales /= n
		sum.MeanDemand /= n
		result = append(result, sum)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Strategy < result[j].Strategy
	})
	return result, nil
}

var _ storage.OutcomeStore = (*OutcomeStore)(nil)
