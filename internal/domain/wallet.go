package domain

import "time"

// SimulationState is the mutable state of one growth wallet simulation.
// It is owned exclusively by a single simulation instance.
type SimulationState struct {
	Price         float64 `json:"price"`
	Sales         int     `json:"sales"`
	Earnings      float64 `json:"earnings"` // revenue - material cost × sales - marketing cost; may be negative
	MarketingCost float64 `json:"marketing_cost"`
	MarketDemand  float64 `json:"market_demand"` // sentiment multiplier
	WeeksRunning  int     `json:"weeks_running"`
	TotalProfit   float64 `json:"total_profit"` // saturating sum, bounded by the profit ceiling
}

// HistoryEntry is an immutable snapshot recorded once per strategy application.
type HistoryEntry struct {
	Price         float64 `json:"price"`
	Earnings      float64 `json:"earnings"`
	Sales         int     `json:"sales"`
	MarketingCost float64 `json:"marketing_cost"`
	Week          int     `json:"week"`
}

// Snapshot converts the state into a history entry for the given week.
func (s SimulationState) Snapshot(week int) HistoryEntry {
	return HistoryEntry{
		Price:         s.Price,
		Earnings:      s.Earnings,
		Sales:         s.Sales,
		MarketingCost: s.MarketingCost,
		Week:          week,
	}
}

// StepResult describes one committed strategy application.
type StepResult struct {
	SessionID      string          `json:"session_id"`
	ProductID      string          `json:"product_id"`
	Strategy       string          `json:"strategy"`
	Message        string          `json:"message"`
	Demand         float64         `json:"demand"`
	MarketingBoost float64         `json:"marketing_boost"`
	Before         SimulationState `json:"before"`
	After          SimulationState `json:"after"`
	Entry          HistoryEntry    `json:"entry"`
	At             time.Time       `json:"at"`
}

// RecordedEntry is a history entry persisted with its session context.
type RecordedEntry struct {
	EntryID    string
	SessionID  string
	ProductID  string
	Strategy   string // empty for the initial snapshot
	Entry      HistoryEntry
	RecordedAt time.Time
}

// StrategyOutcome is one analytics row per committed step.
type StrategyOutcome struct {
	SessionID    string
	ProductID    string
	Strategy     string
	Week         int
	Demand       float64
	Price        float64
	Sales        int
	Earnings     float64
	MarketDemand float64
	TotalProfit  float64
	RecordedAt   time.Time
}

// StrategySummary aggregates outcomes per strategy.
type StrategySummary struct {
	Strategy     string
	Steps        int
	MeanEarnings float64
	MeanSales    float64
	MeanDemand   float64
	MaxEarnings  float64
	MinEarnings  float64
}
