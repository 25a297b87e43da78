package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/metrics"
)

// Report is the per-session growth wallet report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SessionID   string
	Product     domain.Product

	Summary SessionSummary

	// Weeks in ascending order; week 0 is the opening snapshot
	Weeks []WeekRow

	// Strategy metrics across all persisted sessions of the product, sorted by strategy
	StrategyMetrics []StrategyMetricRow
}

// SessionSummary totals the simulated weeks (week 0 excluded).
// Money fields are exact decimal sums rounded to 2 places.
type SessionSummary struct {
	Weeks          int
	UnitsSold      int
	Revenue        decimal.Decimal
	MaterialCost   decimal.Decimal
	MarketingSpend decimal.Decimal
	Earnings       decimal.Decimal
	FinalPrice     float64
	TotalProfit    float64 // saturating, as tracked by the simulation
	BestWeek       int     // 0 when no week was simulated
	WorstWeek      int
	Stats          metrics.EarningsStats
}

// WeekRow represents one row in the weekly table.
type WeekRow struct {
	Week          int
	Strategy      string // empty for week 0
	Price         float64
	Sales         int
	Revenue       decimal.Decimal
	MarketingCost float64
	Earnings      float64
}

// StrategyMetricRow represents one row in the strategy metrics table.
type StrategyMetricRow struct {
	Strategy     string
	Steps        int
	MeanEarnings float64
	MeanSales    float64
	MeanDemand   float64
	MaxEarnings  float64
	MinEarnings  float64
}
