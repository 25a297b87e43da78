// Package verification replays persisted session history through the
// simulation model and reports where stored weeks diverge from it.
package verification

import (
	"math"

	"growth-wallet/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Week     int    `json:"week"`
	Field    string `json:"field"`
	Expected any    `json:"expected"` // stored value
	Actual   any    `json:"actual"`   // replayed value
}

// VerificationReport contains the result of verifying one session.
type VerificationReport struct {
	SessionID     string `json:"session_id"`
	ProductID     string `json:"product_id"`
	WeeksVerified int    `json:"weeks_verified"`
	// OutcomesVerified counts strategy outcomes cross-checked against history.
	OutcomesVerified int               `json:"outcomes_verified,omitempty"`
	Match            bool              `json:"match"`
	Divergences      []FieldDivergence `json:"divergences,omitempty"`
}

// CompareEntries compares a stored history entry with its replayed
// counterpart and returns divergences.
func CompareEntries(stored, replayed domain.HistoryEntry) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{
			Week:     stored.Week,
			Field:    field,
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.Week != replayed.Week {
		add("Week", stored.Week, replayed.Week)
	}
	if stored.Sales != replayed.Sales {
		add("Sales", stored.Sales, replayed.Sales)
	}
	if !floatEquals(stored.Price, replayed.Price) {
		add("Price", stored.Price, replayed.Price)
	}
	if !floatEquals(stored.MarketingCost, replayed.MarketingCost) {
		add("MarketingCost", stored.MarketingCost, replayed.MarketingCost)
	}
	if !floatEquals(stored.Earnings, replayed.Earnings) {
		add("Earnings", stored.Earnings, replayed.Earnings)
	}

	return divergences
}

// floatEquals uses an absolute tolerance for small values and a relative
// one for large money amounts.
func floatEquals(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= FloatTolerance {
		return true
	}
	return diff <= FloatTolerance*math.Max(math.Abs(a), math.Abs(b))
}

// CompareOutcome checks a stored strategy outcome against the history entry
// recorded for the same week.
func CompareOutcome(o *domain.StrategyOutcome, stored *domain.RecordedEntry) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{
			Week:     o.Week,
			Field:    "Outcome." + field,
			Expected: expected,
			Actual:   actual,
		})
	}

	if o.Strategy != stored.Strategy {
		add("Strategy", stored.Strategy, o.Strategy)
	}
	if o.Sales != stored.Entry.Sales {
		add("Sales", stored.Entry.Sales, o.Sales)
	}
	if !floatEquals(o.Price, stored.Entry.Price) {
		add("Price", stored.Entry.Price, o.Price)
	}
	if !floatEquals(o.Earnings, stored.Entry.Earnings) {
		add("Earnings", stored.Entry.Earnings, o.Earnings)
	}

	return divergences
}
