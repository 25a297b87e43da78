package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/metrics"
	"growth-wallet/internal/storage"
)

// ErrNoHistory is returned when a session has no persisted entries.
var ErrNoHistory = errors.New("no history for session")

// Generator produces reports from stored data.
type Generator struct {
	historyStore storage.HistoryStore
	outcomeStore storage.OutcomeStore // optional
	now          func() time.Time     // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. outcomes may be nil.
func NewGenerator(history storage.HistoryStore, outcomes storage.OutcomeStore) *Generator {
	return &Generator{
		historyStore: history,
		outcomeStore: outcomes,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for one session of product p.
func (g *Generator) Generate(ctx context.Context, sessionID string, p domain.Product, state domain.SimulationState) (*Report, error) {
	entries, err := g.historyStore.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, sessionID)
	}

	var sums []*domain.StrategySummary
	if g.outcomeStore != nil {
		sums, err = g.outcomeStore.SummarizeByStrategy(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("load strategy summary: %w", err)
		}
	}

	r := Build(sessionID, p, state, entries, sums)
	r.GeneratedAt = g.now()
	return r, nil
}

// Build assembles a report from already loaded data. Entries may be in any order.
func Build(sessionID string, p domain.Product, state domain.SimulationState, entries []*domain.RecordedEntry, sums []*domain.StrategySummary) *Report {
	r := &Report{
		SessionID: sessionID,
		Product:   p,
		Weeks:     buildWeeks(entries),
	}
	r.Summary = summarize(r.Weeks, p, state)
	r.StrategyMetrics = buildStrategyMetrics(sums)
	return r
}

func buildWeeks(entries []*domain.RecordedEntry) []WeekRow {
	rows := make([]WeekRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, WeekRow{
			Week:          e.Entry.Week,
			Strategy:      e.Strategy,
			Price:         e.Entry.Price,
			Sales:         e.Entry.Sales,
			Revenue:       decimal.NewFromFloat(e.Entry.Price).Mul(decimal.NewFromInt(int64(e.Entry.Sales))),
			MarketingCost: e.Entry.MarketingCost,
			Earnings:      e.Entry.Earnings,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Week < rows[j].Week
	})
	return rows
}

func summarize(weeks []WeekRow, p domain.Product, state domain.SimulationState) SessionSummary {
	s := SessionSummary{
		Revenue:        decimal.Zero,
		MaterialCost:   decimal.Zero,
		MarketingSpend: decimal.Zero,
		Earnings:       decimal.Zero,
		FinalPrice:     state.Price,
		TotalProfit:    state.TotalProfit,
	}

	material := decimal.NewFromFloat(p.MaterialCost)
	best, worst := -1, -1
	earnings := make([]float64, 0, len(weeks))
	for i, w := range weeks {
		if w.Week == 0 {
			continue
		}
		s.Weeks++
		s.UnitsSold += w.Sales
		s.Revenue = s.Revenue.Add(w.Revenue)
		s.MaterialCost = s.MaterialCost.Add(material.Mul(decimal.NewFromInt(int64(w.Sales))))
		s.MarketingSpend = s.MarketingSpend.Add(decimal.NewFromFloat(w.MarketingCost))
		s.Earnings = s.Earnings.Add(decimal.NewFromFloat(w.Earnings))
		earnings = append(earnings, w.Earnings)

		if best < 0 || w.Earnings > weeks[best].Earnings {
			best = i
		}
		if worst < 0 || w.Earnings < weeks[worst].Earnings {
			worst = i
		}
	}

	if best >= 0 {
		s.BestWeek = weeks[best].Week
		s.WorstWeek = weeks[worst].Week
	}

	s.Stats = metrics.Compute(earnings)

	s.Revenue = s.Revenue.Round(2)
	s.MaterialCost = s.MaterialCost.Round(2)
	s.MarketingSpend = s.MarketingSpend.Round(2)
	s.Earnings = s.Earnings.Round(2)
	return s
}

func buildStrategyMetrics(sums []*domain.StrategySummary) []StrategyMetricRow {
	rows := make([]StrategyMetricRow, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, StrategyMetricRow{
			Strategy:     s.Strategy,
			Steps:        s.Steps,
			MeanEarnings: s.MeanEarnings,
			MeanSales:    s.MeanSales,
			MeanDemand:   s.MeanDemand,
			MaxEarnings:  s.MaxEarnings,
			MinEarnings:  s.MinEarnings,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Strategy < rows[j].Strategy
	})
	return rows
}
