// Package market implements the market response model: how buyers react to a
// proposed price given current sentiment and marketing spend.
package market

import "growth-wallet/internal/domain"

// ComputeDemand returns the demand multiplier for a proposed price.
//
// Inverse-price elasticity (base price / proposed price) is scaled by the
// current market sentiment, marketing boost adds a flat amount, the result is
// clamped to [MinDemand, MaxDemand] and then reduced by the first penalty tier
// whose threshold the price-to-base ratio exceeds.
func ComputeDemand(proposedPrice float64, state domain.SimulationState, p domain.Product, marketingBoost float64, cfg domain.Config) float64 {
	base := p.BasePrice / proposedPrice
	demand := base*state.MarketDemand + marketingBoost*cfg.MarketingWeight
	demand = Clamp(demand, cfg.MinDemand, cfg.MaxDemand)

	ratio := proposedPrice / p.BasePrice
	for _, tier := range cfg.PenaltyTiers {
		if ratio > tier.Above {
			demand *= tier.Factor
			break
		}
	}

	return demand
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
