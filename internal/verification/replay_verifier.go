package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/simulation"
	"growth-wallet/internal/storage"
	"growth-wallet/internal/strategy"
)

// ErrNoHistory is returned when the session has no stored entries.
var ErrNoHistory = errors.New("no stored history for session")

// ReplayVerifier re-runs stored strategy sequences from the opening snapshot.
type ReplayVerifier struct {
	historyStore storage.HistoryStore
	outcomeStore storage.OutcomeStore
	cfg          domain.Config
}

// NewReplayVerifier creates a verifier that replays with cfg.
func NewReplayVerifier(history storage.HistoryStore, cfg domain.Config) *ReplayVerifier {
	return &ReplayVerifier{historyStore: history, cfg: cfg}
}

// WithOutcomes makes VerifySession also check the session's strategy
// outcomes against its history. A nil store disables the check.
func (v *ReplayVerifier) WithOutcomes(outcomes storage.OutcomeStore) *ReplayVerifier {
	v.outcomeStore = outcomes
	return v
}

// Entries returns the stored history of sessionID, week ascending.
func (v *ReplayVerifier) Entries(ctx context.Context, sessionID string) ([]*domain.RecordedEntry, error) {
	entries, err := v.historyStore.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, sessionID)
	}
	return entries, nil
}

// VerifySession loads every stored week of sessionID and replays it for p.
func (v *ReplayVerifier) VerifySession(ctx context.Context, sessionID string, p domain.Product) (*VerificationReport, error) {
	entries, err := v.Entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report, err := Replay(entries, p, v.cfg)
	if err != nil {
		return nil, err
	}
	report.SessionID = sessionID

	if v.outcomeStore != nil {
		outcomes, err := v.outcomeStore.GetBySession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load outcomes: %w", err)
		}
		report.OutcomesVerified = len(outcomes)
		report.Divergences = append(report.Divergences, crossCheckOutcomes(outcomes, entries)...)
		report.Match = len(report.Divergences) == 0
	}
	return report, nil
}

// crossCheckOutcomes matches each outcome to the history entry of its week.
// An outcome without a recorded week is itself a divergence.
func crossCheckOutcomes(outcomes []*domain.StrategyOutcome, entries []*domain.RecordedEntry) []FieldDivergence {
	byWeek := make(map[int]*domain.RecordedEntry, len(entries))
	for _, e := range entries {
		byWeek[e.Entry.Week] = e
	}

	var divergences []FieldDivergence
	for _, o := range outcomes {
		stored, ok := byWeek[o.Week]
		if !ok {
			divergences = append(divergences, FieldDivergence{
				Week: o.Week, Field: "Outcome.Week", Expected: nil, Actual: o.Week,
			})
			continue
		}
		divergences = append(divergences, CompareOutcome(o, stored)...)
	}
	return divergences
}

// Replay checks entries against a fresh simulation of p. The opening
// snapshot must be week 0; replay stops at the first missing week since
// every later state depends on it.
func Replay(entries []*domain.RecordedEntry, p domain.Product, cfg domain.Config) (*VerificationReport, error) {
	sorted := make([]*domain.RecordedEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Entry.Week < sorted[j].Entry.Week
	})

	report := &VerificationReport{ProductID: p.ID}
	state := simulation.InitialState(p, cfg)

	for i, e := range sorted {
		if e.Entry.Week != i {
			report.Divergences = append(report.Divergences, FieldDivergence{
				Week: i, Field: "Week", Expected: i, Actual: e.Entry.Week,
			})
			break
		}

		if i > 0 {
			kind, err := strategy.Parse(e.Strategy)
			if err != nil {
				return nil, fmt.Errorf("week %d: %w", e.Entry.Week, err)
			}
			tr, err := simulation.Advance(state, p, cfg, kind)
			if err != nil {
				return nil, fmt.Errorf("week %d: %w", e.Entry.Week, err)
			}
			state = tr.Next
		}

		report.Divergences = append(report.Divergences, CompareEntries(e.Entry, state.Snapshot(i))...)
		report.WeeksVerified++
	}

	report.Match = len(report.Divergences) == 0
	return report, nil
}
