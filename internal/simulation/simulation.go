// Package simulation owns the growth wallet state machine: one product, one
// mutable state and an append-only display history, advanced one strategy
// application (one simulated week) at a time.
package simulation

import (
	"fmt"
	"math"
	"sync"
	"time"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/market"
	"growth-wallet/internal/strategy"
)

// Simulation is safe for concurrent use. Step and Reset serialize on one lock,
// so manual steps and autopilot ticks never interleave partial updates.
type Simulation struct {
	mu      sync.Mutex
	product domain.Product
	cfg     domain.Config
	state   domain.SimulationState
	history []domain.HistoryEntry
	now     func() time.Time
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithClock overrides the clock used to timestamp step results.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// New creates a simulation for p, initialized to its opening snapshot.
func New(p domain.Product, cfg domain.Config, opts ...Option) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		product: p,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s, nil
}

// Product returns the product this simulation is bound to.
func (s *Simulation) Product() domain.Product {
	return s.product
}

// Config returns the simulation constants.
func (s *Simulation) Config() domain.Config {
	return s.cfg
}

// InitialState returns the opening snapshot for p.
func InitialState(p domain.Product, cfg domain.Config) domain.SimulationState {
	sales := p.OpeningSales()
	if cfg.MaxWeeklySales > 0 && sales > cfg.MaxWeeklySales {
		sales = cfg.MaxWeeklySales
	}
	price := p.BasePrice
	return domain.SimulationState{
		Price:         price,
		Sales:         sales,
		Earnings:      price*float64(sales) - p.MaterialCost*float64(sales) - p.InitialMarketingCost,
		MarketingCost: p.InitialMarketingCost,
		MarketDemand:  1.0,
		WeeksRunning:  0,
		TotalProfit:   0,
	}
}

// Transition is the outcome of applying one strategy to a state.
type Transition struct {
	Next       domain.SimulationState
	Adjustment strategy.Adjustment
	Demand     float64
}

// Advance computes the next state from cur without side effects.
func Advance(cur domain.SimulationState, p domain.Product, cfg domain.Config, kind strategy.Kind) (Transition, error) {
	adj, err := strategy.Apply(kind, cur, p, cfg)
	if err != nil {
		return Transition{}, err
	}

	demand := market.ComputeDemand(adj.CandidatePrice, cur, p, adj.MarketingBoost, cfg)

	sales := int(math.Floor(float64(cur.Sales) * demand))
	sales = max(1, min(sales, cfg.MaxWeeklySales))

	marketingCost := p.InitialMarketingCost * (1 + adj.MarketingBoost)
	revenue := adj.CandidatePrice * float64(sales)
	earnings := revenue - float64(sales)*p.MaterialCost - marketingCost

	next := domain.SimulationState{
		Price:         adj.CandidatePrice,
		Sales:         sales,
		Earnings:      earnings,
		MarketingCost: marketingCost,
		MarketDemand:  adjustSentiment(cur.MarketDemand, cur.Earnings, earnings, cfg),
		WeeksRunning:  cur.WeeksRunning + 1,
		TotalProfit:   accumulateProfit(cur.TotalProfit, earnings, cfg.ProfitCeiling),
	}

	return Transition{Next: next, Adjustment: adj, Demand: demand}, nil
}

// adjustSentiment nudges market demand by the earnings trend.
// Zero previous earnings count as no change.
func adjustSentiment(current, prevEarnings, newEarnings float64, cfg domain.Config) float64 {
	if prevEarnings == 0 {
		return current
	}

	change := (newEarnings - prevEarnings) / prevEarnings
	switch {
	case change > cfg.SentimentThreshold:
		return min(current*cfg.SentimentUp, cfg.MaxMarketDemand)
	case change < -cfg.SentimentThreshold:
		return max(current*cfg.SentimentDown, cfg.MinMarketDemand)
	default:
		return current
	}
}

// accumulateProfit adds positive earnings to total without exceeding ceiling.
func accumulateProfit(total, earnings, ceiling float64) float64 {
	additional := max(0, earnings)
	saturated := min(ceiling-total, additional)
	return total + max(0, saturated)
}

// Step applies kind and commits the resulting state, appending one history entry.
// An invalid kind returns strategy.ErrInvalidStrategy and leaves state untouched.
func (s *Simulation) Step(kind strategy.Kind) (domain.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state
	tr, err := Advance(before, s.product, s.cfg, kind)
	if err != nil {
		return domain.StepResult{}, err
	}

	entry := tr.Next.Snapshot(tr.Next.WeeksRunning)
	s.state = tr.Next
	s.history = append(s.history, entry)

	return domain.StepResult{
		ProductID:      s.product.ID,
		Strategy:       kind.String(),
		Message:        tr.Adjustment.Message,
		Demand:         tr.Demand,
		MarketingBoost: tr.Adjustment.MarketingBoost,
		Before:         before,
		After:          tr.Next,
		Entry:          entry,
		At:             s.now(),
	}, nil
}

// StepByName parses name and applies it.
func (s *Simulation) StepByName(name string) (domain.StepResult, error) {
	kind, err := strategy.Parse(name)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("step: %w", err)
	}
	return s.Step(kind)
}

// Reset replaces state and history with the product's opening snapshot.
func (s *Simulation) Reset() domain.SimulationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	return s.state
}

func (s *Simulation) resetLocked() {
	s.state = InitialState(s.product, s.cfg)
	s.history = []domain.HistoryEntry{s.state.Snapshot(0)}
}

// State returns a copy of the current state.
func (s *Simulation) State() domain.SimulationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// History returns a copy of the history, oldest first.
func (s *Simulation) History() []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}
