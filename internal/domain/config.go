package domain

// Config holds the game-balance constants of the pricing simulation.
// Values are preserved exactly from the growth wallet model; they are
// configuration, not derived quantities.
type Config struct {
	PriceCeilingMultiple float64 // price <= multiple × base price
	PriceFloorMultiple   float64 // price >= multiple × material cost
	MaxWeeklySales       int
	ProfitCeiling        float64

	// Market response model
	MinDemand          float64
	MaxDemand          float64
	MarketingWeight    float64 // demand added per unit of marketing boost
	PenaltyTiers       []PenaltyTier
	MinMarketDemand    float64
	MaxMarketDemand    float64
	SentimentUp        float64 // multiplier when earnings grow past the threshold
	SentimentDown      float64 // multiplier when earnings fall past the threshold
	SentimentThreshold float64

	AutopilotStrategies []string
}

// PenaltyTier scales demand when price / base price exceeds Above.
// Tiers are evaluated in order; the first match applies.
type PenaltyTier struct {
	Above  float64
	Factor float64
}

// DefaultConfig returns the standard game-balance configuration.
func DefaultConfig() Config {
	return Config{
		PriceCeilingMultiple: 5.0,
		PriceFloorMultiple:   1.3,
		MaxWeeklySales:       50,
		ProfitCeiling:        500000,

		MinDemand:       0.1,
		MaxDemand:       2.0,
		MarketingWeight: 0.3,
		PenaltyTiers: []PenaltyTier{
			{Above: 3.0, Factor: 0.3},
			{Above: 2.0, Factor: 0.6},
			{Above: 1.5, Factor: 0.8},
		},
		MinMarketDemand:    0.3,
		MaxMarketDemand:    2.0,
		SentimentUp:        1.05,
		SentimentDown:      0.95,
		SentimentThreshold: 0.1,

		AutopilotStrategies: []string{
			"high_demand", "profit_max", "market_penetration",
			"balanced", "premium_positioning", "clearance",
		},
	}
}

// WithDefaults returns c with every zero field taken from DefaultConfig.
// Explicitly set fields are kept.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.PriceCeilingMultiple == 0 {
		c.PriceCeilingMultiple = d.PriceCeilingMultiple
	}
	if c.PriceFloorMultiple == 0 {
		c.PriceFloorMultiple = d.PriceFloorMultiple
	}
	if c.MaxWeeklySales == 0 {
		c.MaxWeeklySales = d.MaxWeeklySales
	}
	if c.ProfitCeiling == 0 {
		c.ProfitCeiling = d.ProfitCeiling
	}
	if c.MinDemand == 0 {
		c.MinDemand = d.MinDemand
	}
	if c.MaxDemand == 0 {
		c.MaxDemand = d.MaxDemand
	}
	if c.MarketingWeight == 0 {
		c.MarketingWeight = d.MarketingWeight
	}
	if c.PenaltyTiers == nil {
		c.PenaltyTiers = d.PenaltyTiers
	}
	if c.MinMarketDemand == 0 {
		c.MinMarketDemand = d.MinMarketDemand
	}
	if c.MaxMarketDemand == 0 {
		c.MaxMarketDemand = d.MaxMarketDemand
	}
	if c.SentimentUp == 0 {
		c.SentimentUp = d.SentimentUp
	}
	if c.SentimentDown == 0 {
		c.SentimentDown = d.SentimentDown
	}
	if c.SentimentThreshold == 0 {
		c.SentimentThreshold = d.SentimentThreshold
	}
	if len(c.AutopilotStrategies) == 0 {
		c.AutopilotStrategies = d.AutopilotStrategies
	}
	return c
}

// PriceCeiling returns the highest allowed price for p.
func (c Config) PriceCeiling(p Product) float64 {
	return c.PriceCeilingMultiple * p.BasePrice
}

// PriceFloor returns the lowest allowed price for p.
func (c Config) PriceFloor(p Product) float64 {
	return c.PriceFloorMultiple * p.MaterialCost
}
