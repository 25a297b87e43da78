package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/storage"
)

func TestOutcomeStore_SummarizeByStrategy(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()

	outcomes := []*domain.StrategyOutcome{
		{SessionID: "s1", ProductID: "p1", Strategy: "high_demand", Week: 1, Demand: 0.8, Sales: 6, Earnings: 11250},
		{SessionID: "s1", ProductID: "p1", Strategy: "high_demand", Week: 2, Demand: 0.6, Sales: 4, Earnings: 7000},
		{SessionID: "s1", ProductID: "p1", Strategy: "balanced", Week: 3, Demand: 1.1, Sales: 5, Earnings: 9000},
		{SessionID: "s2", ProductID: "p2", Strategy: "balanced", Week: 1, Demand: 1.0, Sales: 10, Earnings: 3000},
	}
	for _, o := range outcomes {
		if err := store.Insert(ctx, o); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.SummarizeByStrategy(ctx, "")
	if err != nil {
		t.Fatalf("SummarizeByStrategy failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 strategies, got %d", len(all))
	}
	if all[0].Strategy != "balanced" || all[0].Steps != 2 {
		t.Errorf("unexpected first summary: %+v", all[0])
	}

	hd := all[1]
	if hd.Steps != 2 || math.Abs(hd.MeanEarnings-9125) > 1e-9 || hd.MaxEarnings != 11250 || hd.MinEarnings != 7000 {
		t.Errorf("unexpected high_demand summary: %+v", hd)
	}
	if math.Abs(hd.MeanSales-5) > 1e-9 || math.Abs(hd.MeanDemand-0.7) > 1e-9 {
		t.Errorf("unexpected high_demand means: %+v", hd)
	}

	p2, _ := store.SummarizeByStrategy(ctx, "p2")
	if len(p2) != 1 || p2[0].MeanEarnings != 3000 {
		t.Errorf("unexpected p2 summary: %+v", p2)
	}
}

func TestOutcomeStore_GetBySession(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()

	_ = store.Insert(ctx, &domain.StrategyOutcome{SessionID: "s1", Strategy: "clearance", Week: 2})
	_ = store.Insert(ctx, &domain.StrategyOutcome{SessionID: "s1", Strategy: "clearance", Week: 1})
	_ = store.Insert(ctx, &domain.StrategyOutcome{SessionID: "s2", Strategy: "clearance", Week: 1})

	got, _ := store.GetBySession(ctx, "s1")
	if len(got) != 2 || got[0].Week != 1 || got[1].Week != 2 {
		t.Errorf("unexpected outcomes: %+v", got)
	}

	if err := store.Insert(ctx, &domain.StrategyOutcome{SessionID: "s1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
