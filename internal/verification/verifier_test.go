package verification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/simulation"
	"growth-wallet/internal/storage/memory"
	"growth-wallet/internal/strategy"
)

var product = domain.DefaultCatalog()[0]

// recordSession runs names through a live simulation and returns the
// entries the wallet would have persisted.
func recordSession(t *testing.T, sessionID string, names ...string) []*domain.RecordedEntry {
	t.Helper()

	sim, err := simulation.New(product, domain.DefaultConfig())
	require.NoError(t, err)
	for _, n := range names {
		_, err := sim.StepByName(n)
		require.NoError(t, err)
	}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var entries []*domain.RecordedEntry
	for i, h := range sim.History() {
		e := &domain.RecordedEntry{
			EntryID:    fmt.Sprintf("%s-%d", sessionID, h.Week),
			SessionID:  sessionID,
			ProductID:  product.ID,
			Entry:      h,
			RecordedAt: at,
		}
		if i > 0 {
			e.Strategy = names[i-1]
		}
		entries = append(entries, e)
	}
	return entries
}

func insertAll(t *testing.T, store *memory.HistoryStore, entries []*domain.RecordedEntry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, store.Insert(context.Background(), e))
	}
}

// outcomesFor mirrors the outcome rows the wallet writes next to each step.
func outcomesFor(entries []*domain.RecordedEntry) []*domain.StrategyOutcome {
	var out []*domain.StrategyOutcome
	for _, e := range entries[1:] {
		out = append(out, &domain.StrategyOutcome{
			SessionID:  e.SessionID,
			ProductID:  e.ProductID,
			Strategy:   e.Strategy,
			Week:       e.Entry.Week,
			Price:      e.Entry.Price,
			Sales:      e.Entry.Sales,
			Earnings:   e.Entry.Earnings,
			RecordedAt: e.RecordedAt,
		})
	}
	return out
}

func TestCompareEntries_ExactMatch(t *testing.T) {
	e := domain.HistoryEntry{Week: 1, Price: 2875, Sales: 6, MarketingCost: 1200, Earnings: 11250}
	assert.Empty(t, CompareEntries(e, e))
}

func TestCompareEntries_WithinTolerance(t *testing.T) {
	stored := domain.HistoryEntry{Week: 1, Price: 2875, Earnings: 11250}
	replayed := stored
	replayed.Price += 1e-9
	replayed.Earnings += 1e-6 // relative to 11250

	assert.Empty(t, CompareEntries(stored, replayed))
}

func TestCompareEntries_Divergences(t *testing.T) {
	stored := domain.HistoryEntry{Week: 2, Price: 3000, Sales: 5, MarketingCost: 1200, Earnings: -100}
	replayed := domain.HistoryEntry{Week: 2, Price: 3100, Sales: 4, MarketingCost: 1200, Earnings: -100}

	divs := CompareEntries(stored, replayed)
	require.Len(t, divs, 2)
	assert.Equal(t, "Sales", divs[0].Field)
	assert.Equal(t, 5, divs[0].Expected)
	assert.Equal(t, 4, divs[0].Actual)
	assert.Equal(t, "Price", divs[1].Field)
	assert.Equal(t, 2, divs[1].Week)
}

func TestReplay_Match(t *testing.T) {
	entries := recordSession(t, "s1", "high_demand", "market_penetration", "balanced", "clearance", "profit_max")

	// storage order is not guaranteed
	entries[1], entries[4] = entries[4], entries[1]

	report, err := Replay(entries, product, domain.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, report.Match, "divergences: %+v", report.Divergences)
	assert.Equal(t, 6, report.WeeksVerified)
	assert.Equal(t, product.ID, report.ProductID)
}

func TestReplay_TamperedEarnings(t *testing.T) {
	entries := recordSession(t, "s1", "high_demand", "profit_max")
	entries[2].Entry.Earnings += 500

	report, err := Replay(entries, product, domain.DefaultConfig())
	require.NoError(t, err)
	assert.False(t, report.Match)
	require.Len(t, report.Divergences, 1)
	assert.Equal(t, "Earnings", report.Divergences[0].Field)
	assert.Equal(t, 2, report.Divergences[0].Week)
}

func TestReplay_GapStopsReplay(t *testing.T) {
	entries := recordSession(t, "s1", "high_demand", "profit_max", "clearance")
	entries = append(entries[:2], entries[3:]...) // drop week 2

	report, err := Replay(entries, product, domain.DefaultConfig())
	require.NoError(t, err)
	assert.False(t, report.Match)
	assert.Equal(t, 2, report.WeeksVerified)

	want := []FieldDivergence{{Week: 2, Field: "Week", Expected: 2, Actual: 3}}
	if diff := cmp.Diff(want, report.Divergences); diff != "" {
		t.Errorf("divergences mismatch (-want +got):\n%s", diff)
	}
}

func TestReplay_DifferentConfigDiverges(t *testing.T) {
	entries := recordSession(t, "s1", "profit_max", "profit_max", "profit_max")

	cfg := domain.DefaultConfig()
	cfg.PriceCeilingMultiple = 1.1

	report, err := Replay(entries, product, cfg)
	require.NoError(t, err)
	assert.False(t, report.Match)
}

func TestReplay_UnknownStrategy(t *testing.T) {
	entries := recordSession(t, "s1", "high_demand")
	entries[1].Strategy = "bogus"

	_, err := Replay(entries, product, domain.DefaultConfig())
	assert.ErrorIs(t, err, strategy.ErrInvalidStrategy)
}

func TestReplayVerifier_VerifySession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()
	insertAll(t, store, recordSession(t, "s1", "high_demand", "balanced"))
	insertAll(t, store, recordSession(t, "s2", "clearance"))

	v := NewReplayVerifier(store, domain.DefaultConfig())

	report, err := v.VerifySession(ctx, "s1", product)
	require.NoError(t, err)
	assert.True(t, report.Match)
	assert.Equal(t, "s1", report.SessionID)
	assert.Equal(t, 3, report.WeeksVerified)

	_, err = v.VerifySession(ctx, "missing", product)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestReplayVerifier_OutcomesCrossChecked(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryStore()
	outcomes := memory.NewOutcomeStore()

	entries := recordSession(t, "s1", "high_demand", "profit_max")
	insertAll(t, history, entries)
	for _, o := range outcomesFor(entries) {
		require.NoError(t, outcomes.Insert(ctx, o))
	}

	report, err := NewReplayVerifier(history, domain.DefaultConfig()).
		WithOutcomes(outcomes).
		VerifySession(ctx, "s1", product)
	require.NoError(t, err)
	assert.True(t, report.Match)
	assert.Equal(t, 2, report.OutcomesVerified)
}

func TestReplayVerifier_OutcomeMismatch(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryStore()
	outcomes := memory.NewOutcomeStore()

	entries := recordSession(t, "s1", "high_demand", "profit_max")
	insertAll(t, history, entries)
	rows := outcomesFor(entries)
	rows[1].Strategy = "clearance"
	rows[1].Earnings += 100
	for _, o := range rows {
		require.NoError(t, outcomes.Insert(ctx, o))
	}
	require.NoError(t, outcomes.Insert(ctx, &domain.StrategyOutcome{
		SessionID: "s1", ProductID: product.ID, Strategy: "balanced", Week: 9,
	}))

	report, err := NewReplayVerifier(history, domain.DefaultConfig()).
		WithOutcomes(outcomes).
		VerifySession(ctx, "s1", product)
	require.NoError(t, err)
	assert.False(t, report.Match)

	var fields []string
	for _, d := range report.Divergences {
		fields = append(fields, fmt.Sprintf("%d:%s", d.Week, d.Field))
	}
	assert.ElementsMatch(t, []string{"2:Outcome.Strategy", "2:Outcome.Earnings", "9:Outcome.Week"}, fields)
}
