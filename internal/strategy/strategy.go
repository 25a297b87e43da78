// Package strategy maps named pricing heuristics to concrete price and
// marketing adjustments.
package strategy

import (
	"errors"
	"fmt"

	"growth-wallet/internal/domain"
)

// ErrInvalidStrategy is returned for an unrecognized strategy name.
var ErrInvalidStrategy = errors.New("invalid strategy")

// Kind enumerates the supported pricing strategies.
type Kind int

// Strategy kinds. The zero value is not a valid strategy.
const (
	HighDemand Kind = iota + 1
	ProfitMax
	MarketPenetration
	Balanced
	PremiumPositioning
	Clearance
)

var kindNames = map[Kind]string{
	HighDemand:         "high_demand",
	ProfitMax:          "profit_max",
	MarketPenetration:  "market_penetration",
	Balanced:           "balanced",
	PremiumPositioning: "premium_positioning",
	Clearance:          "clearance",
}

// All returns every strategy kind in declaration order.
func All() []Kind {
	return []Kind{HighDemand, ProfitMax, MarketPenetration, Balanced, PremiumPositioning, Clearance}
}

// String returns the wire name of the strategy.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a known strategy.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Parse resolves a strategy name. Unknown names return ErrInvalidStrategy.
func Parse(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
}

// ParseAll resolves a list of names, failing on the first unknown one.
func ParseAll(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := Parse(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Adjustment is the outcome of applying a strategy to the current state.
type Adjustment struct {
	CandidatePrice float64
	MarketingBoost float64
	Message        string
}

// Apply computes the candidate price and marketing boost for kind.
// The candidate price always lies within [PriceFloor, PriceCeiling].
func Apply(kind Kind, state domain.SimulationState, p domain.Product, cfg domain.Config) (Adjustment, error) {
	ceiling := cfg.PriceCeiling(p)
	floor := cfg.PriceFloor(p)

	var adj Adjustment
	switch kind {
	case HighDemand:
		adj = Adjustment{
			CandidatePrice: min(state.Price*1.15, ceiling),
			Message:        "High demand detected: raising price 15%",
		}
	case ProfitMax:
		adj = Adjustment{
			CandidatePrice: min(state.Price*1.25, ceiling),
			Message:        "Maximising profit: raising price 25%",
		}
	case MarketPenetration:
		adj = Adjustment{
			CandidatePrice: max(p.MaterialCost*1.5, state.Price*0.75),
			MarketingBoost: 0.5,
			Message:        "Market penetration: cutting price 25% and boosting marketing",
		}
	case Balanced:
		adj = balanced(state, p, floor, ceiling)
	case PremiumPositioning:
		adj = Adjustment{
			CandidatePrice: min(state.Price*1.30, ceiling),
			MarketingBoost: 0.3,
			Message:        "Premium positioning: raising price 30% with brand marketing",
		}
	case Clearance:
		adj = Adjustment{
			CandidatePrice: max(state.Price*0.85, floor),
			MarketingBoost: 0.1,
			Message:        "Clearance: discounting 15% to move stock",
		}
	default:
		return Adjustment{}, fmt.Errorf("%w: %s", ErrInvalidStrategy, kind)
	}

	adj.CandidatePrice = min(max(adj.CandidatePrice, floor), ceiling)
	return adj, nil
}

// balanced discounts when the margin is already rich and raises price otherwise.
func balanced(state domain.SimulationState, p domain.Product, floor, ceiling float64) Adjustment {
	margin := 0.0
	if state.Price > 0 {
		margin = (state.Price - p.MaterialCost) / state.Price
	}

	if margin > 0.6 {
		return Adjustment{
			CandidatePrice: max(state.Price*0.95, floor),
			MarketingBoost: 0.2,
			Message:        fmt.Sprintf("Balanced: margin %.0f%% is healthy, trimming price 5%%", margin*100),
		}
	}
	return Adjustment{
		CandidatePrice: min(state.Price*1.08, ceiling),
		MarketingBoost: 0.2,
		Message:        fmt.Sprintf("Balanced: margin %.0f%% is thin, raising price 8%%", margin*100),
	}
}
