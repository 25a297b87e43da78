package simulation

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/strategy"
)

func painting() domain.Product {
	return domain.Product{
		ID:                   "madhubani-painting",
		Name:                 "Madhubani Painting",
		Category:             "Painting",
		BasePrice:            2500,
		MaterialCost:         800,
		InitialMarketingCost: 1200,
		BaseWeeklySales:      8,
	}
}

func newSim(t *testing.T) *Simulation {
	t.Helper()
	sim, err := New(painting(), domain.DefaultConfig())
	require.NoError(t, err)
	return sim
}

func TestNew_InitialSnapshot(t *testing.T) {
	sim := newSim(t)

	state := sim.State()
	assert.Equal(t, 2500.0, state.Price)
	assert.Equal(t, 8, state.Sales)
	assert.InDelta(t, 12400.0, state.Earnings, 1e-9)
	assert.Equal(t, 1200.0, state.MarketingCost)
	assert.Equal(t, 1.0, state.MarketDemand)
	assert.Equal(t, 0, state.WeeksRunning)
	assert.Equal(t, 0.0, state.TotalProfit)

	history := sim.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryEntry{Price: 2500, Earnings: 12400, Sales: 8, MarketingCost: 1200, Week: 0}, history[0])
}

func TestNew_InvalidProduct(t *testing.T) {
	p := painting()
	p.MaterialCost = 3000

	_, err := New(p, domain.DefaultConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestStep_HighDemandScenario(t *testing.T) {
	sim := newSim(t)

	res, err := sim.Step(strategy.HighDemand)
	require.NoError(t, err)

	state := sim.State()
	assert.InDelta(t, 2875.0, state.Price, 1e-9)
	assert.Equal(t, 6, state.Sales)
	assert.InDelta(t, 11250.0, state.Earnings, 1e-6)
	assert.InDelta(t, 1200.0, state.MarketingCost, 1e-9)
	// -9.3% earnings change stays inside the sentiment band
	assert.Equal(t, 1.0, state.MarketDemand)
	assert.Equal(t, 1, state.WeeksRunning)
	assert.InDelta(t, 11250.0, state.TotalProfit, 1e-6)

	assert.Len(t, sim.History(), 2)
	assert.Equal(t, "high_demand", res.Strategy)
	assert.InDelta(t, 2500.0/2875.0, res.Demand, 1e-9)
	assert.Equal(t, 1, res.Entry.Week)
	assert.Equal(t, 2500.0, res.Before.Price)
}

func TestStep_MarketPenetrationScenario(t *testing.T) {
	sim := newSim(t)

	_, err := sim.StepByName("market_penetration")
	require.NoError(t, err)

	state := sim.State()
	assert.InDelta(t, 1875.0, state.Price, 1e-9)
	assert.Equal(t, 11, state.Sales)
	assert.InDelta(t, 1800.0, state.MarketingCost, 1e-9)
	assert.InDelta(t, 10025.0, state.Earnings, 1e-6)
	// earnings fell 19%, sentiment cools
	assert.InDelta(t, 0.95, state.MarketDemand, 1e-12)
}

func TestStep_InvalidStrategyLeavesStateUntouched(t *testing.T) {
	sim := newSim(t)
	_, err := sim.Step(strategy.ProfitMax)
	require.NoError(t, err)

	beforeState := sim.State()
	beforeHistory := sim.History()

	_, err = sim.StepByName("bogus")
	if !errors.Is(err, strategy.ErrInvalidStrategy) {
		t.Fatalf("expected ErrInvalidStrategy, got %v", err)
	}

	_, err = sim.Step(strategy.Kind(0))
	assert.ErrorIs(t, err, strategy.ErrInvalidStrategy)

	assert.Equal(t, beforeState, sim.State())
	assert.Equal(t, beforeHistory, sim.History())
}

func TestStep_HistoryLength(t *testing.T) {
	sim := newSim(t)

	const n = 25
	for i := 0; i < n; i++ {
		_, err := sim.Step(strategy.All()[i%len(strategy.All())])
		require.NoError(t, err)
	}

	history := sim.History()
	require.Len(t, history, n+1)
	for i, e := range history {
		assert.Equal(t, i, e.Week)
	}
	assert.Equal(t, n, sim.State().WeeksRunning)
}

func TestReset_Idempotent(t *testing.T) {
	sim := newSim(t)
	initial := sim.State()
	initialHistory := sim.History()

	for i := 0; i < 5; i++ {
		_, err := sim.Step(strategy.PremiumPositioning)
		require.NoError(t, err)
	}

	got := sim.Reset()
	assert.Equal(t, initial, got)
	assert.Equal(t, initial, sim.State())
	assert.Equal(t, initialHistory, sim.History())

	assert.Equal(t, initial, sim.Reset())
	assert.Equal(t, InitialState(painting(), domain.DefaultConfig()), sim.State())
}

func TestAdvance_Deterministic(t *testing.T) {
	cfg := domain.DefaultConfig()
	p := painting()
	start := domain.SimulationState{Price: 3100, Sales: 14, Earnings: 20000, MarketingCost: 1500, MarketDemand: 1.3, WeeksRunning: 7, TotalProfit: 90000}

	for _, k := range strategy.All() {
		a, err := Advance(start, p, cfg, k)
		require.NoError(t, err)
		b, err := Advance(start, p, cfg, k)
		require.NoError(t, err)
		assert.Equal(t, a, b, k.String())
	}
}

func TestAdvance_SentimentGuards(t *testing.T) {
	cfg := domain.DefaultConfig()
	p := painting()

	// zero previous earnings: no sentiment change
	zero := domain.SimulationState{Price: 2500, Sales: 8, Earnings: 0, MarketDemand: 1.4}
	tr, err := Advance(zero, p, cfg, strategy.HighDemand)
	require.NoError(t, err)
	assert.Equal(t, 1.4, tr.Next.MarketDemand)

	// strong growth at the cap stays at the cap
	capped := domain.SimulationState{Price: 1200, Sales: 2, Earnings: 100, MarketDemand: 2.0}
	tr, err = Advance(capped, p, cfg, strategy.HighDemand)
	require.NoError(t, err)
	assert.Equal(t, 2.0, tr.Next.MarketDemand)

	// steep decline at the floor stays at the floor
	floored := domain.SimulationState{Price: 2500, Sales: 40, Earnings: 60000, MarketDemand: 0.3}
	tr, err = Advance(floored, p, cfg, strategy.Clearance)
	require.NoError(t, err)
	assert.Equal(t, 0.3, tr.Next.MarketDemand)
}

func TestAdvance_ProfitSaturates(t *testing.T) {
	cfg := domain.DefaultConfig()
	p := painting()

	near := domain.SimulationState{Price: 2500, Sales: 8, Earnings: 12400, MarketDemand: 1.0, TotalProfit: cfg.ProfitCeiling - 100}
	tr, err := Advance(near, p, cfg, strategy.HighDemand)
	require.NoError(t, err)
	assert.Equal(t, cfg.ProfitCeiling, tr.Next.TotalProfit)

	full := near
	full.TotalProfit = cfg.ProfitCeiling
	tr, err = Advance(full, p, cfg, strategy.HighDemand)
	require.NoError(t, err)
	assert.Equal(t, cfg.ProfitCeiling, tr.Next.TotalProfit)
}

func TestAdvance_LossDoesNotReduceTotalProfit(t *testing.T) {
	cfg := domain.DefaultConfig()
	p := painting()

	// one unit at a discount cannot cover marketing spend
	state := domain.SimulationState{Price: 1100, Sales: 1, Earnings: 5000, MarketDemand: 0.3, TotalProfit: 7000}
	tr, err := Advance(state, p, cfg, strategy.Clearance)
	require.NoError(t, err)
	assert.Less(t, tr.Next.Earnings, 0.0)
	assert.Equal(t, 7000.0, tr.Next.TotalProfit)
}

func TestStep_InvariantsHoldOnRandomWalks(t *testing.T) {
	cfg := domain.DefaultConfig()
	rng := rand.New(rand.NewSource(42))
	kinds := strategy.All()

	for _, p := range domain.DefaultCatalog() {
		sim, err := New(p, cfg)
		require.NoError(t, err)

		floor := cfg.PriceFloor(p)
		ceiling := cfg.PriceCeiling(p)

		for i := 0; i < 500; i++ {
			_, err := sim.Step(kinds[rng.Intn(len(kinds))])
			require.NoError(t, err)

			s := sim.State()
			require.GreaterOrEqual(t, s.Price, floor-1e-9, "%s week %d", p.ID, s.WeeksRunning)
			require.LessOrEqual(t, s.Price, ceiling+1e-9, "%s week %d", p.ID, s.WeeksRunning)
			require.GreaterOrEqual(t, s.Sales, 1)
			require.LessOrEqual(t, s.Sales, cfg.MaxWeeklySales)
			require.GreaterOrEqual(t, s.MarketDemand, cfg.MinMarketDemand)
			require.LessOrEqual(t, s.MarketDemand, cfg.MaxMarketDemand)
			require.GreaterOrEqual(t, s.TotalProfit, 0.0)
			require.LessOrEqual(t, s.TotalProfit, cfg.ProfitCeiling)
		}
		require.Len(t, sim.History(), 501)
	}
}

func TestStep_ConcurrentCallersSerialize(t *testing.T) {
	sim := newSim(t)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := sim.Step(strategy.All()[(w+i)%len(strategy.All())]); err != nil {
					t.Errorf("step: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	history := sim.History()
	assert.Equal(t, workers*perWorker, sim.State().WeeksRunning)
	require.Len(t, history, workers*perWorker+1)
	for i, e := range history {
		assert.Equal(t, i, e.Week)
	}
}

func TestInitialState_ClampsOpeningSales(t *testing.T) {
	p := painting()
	p.BaseWeeklySales = 500
	cfg := domain.DefaultConfig()

	s := InitialState(p, cfg)
	assert.Equal(t, cfg.MaxWeeklySales, s.Sales)

	p.BaseWeeklySales = 0
	assert.Equal(t, domain.DefaultBaseWeeklySales, InitialState(p, cfg).Sales)
}
