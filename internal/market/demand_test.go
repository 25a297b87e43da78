package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"growth-wallet/internal/domain"
)

func testProduct() domain.Product {
	return domain.Product{ID: "p1", BasePrice: 2500, MaterialCost: 800, InitialMarketingCost: 1200, BaseWeeklySales: 8}
}

func neutral() domain.SimulationState {
	return domain.SimulationState{MarketDemand: 1.0}
}

func TestComputeDemand(t *testing.T) {
	cfg := domain.DefaultConfig()
	p := testProduct()

	tests := []struct {
		name   string
		price  float64
		state  domain.SimulationState
		boost  float64
		expect float64
	}{
		{name: "at base price", price: 2500, state: neutral(), expect: 1.0},
		{name: "high demand raise", price: 2875, state: neutral(), expect: 2500.0 / 2875.0},
		{name: "penetration with boost", price: 1875, state: neutral(), boost: 0.5, expect: 2500.0/1875.0 + 0.15},
		{name: "clamped to max", price: 500, state: neutral(), expect: 2.0},
		{name: "sentiment scales base", price: 2500, state: domain.SimulationState{MarketDemand: 1.5}, expect: 1.5},
		{name: "tier 1.5x penalty", price: 4000, state: neutral(), expect: (2500.0 / 4000.0) * 0.8},
		{name: "tier 2x penalty", price: 6000, state: neutral(), expect: (2500.0 / 6000.0) * 0.6},
		{name: "tier 3x penalty after clamp", price: 10000, state: neutral(), expect: 0.25 * 0.3},
		{name: "clamped to min then penalised", price: 12500, state: domain.SimulationState{MarketDemand: 0.3}, expect: 0.1 * 0.3},
		{name: "exactly 1.5x has no penalty", price: 3750, state: neutral(), expect: 2500.0 / 3750.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDemand(tt.price, tt.state, p, tt.boost, cfg)
			assert.InDelta(t, tt.expect, got, 1e-9)
		})
	}
}

func TestComputeDemand_Pure(t *testing.T) {
	cfg := domain.DefaultConfig()
	p := testProduct()
	state := domain.SimulationState{Price: 2500, Sales: 8, MarketDemand: 1.2}

	first := ComputeDemand(3100, state, p, 0.3, cfg)
	second := ComputeDemand(3100, state, p, 0.3, cfg)

	assert.Equal(t, first, second)
	assert.Equal(t, 1.2, state.MarketDemand)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.1, Clamp(0.05, 0.1, 2.0))
	assert.Equal(t, 2.0, Clamp(3, 0.1, 2.0))
	assert.Equal(t, 1.0, Clamp(1, 0.1, 2.0))
}
