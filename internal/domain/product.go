package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidProduct is returned when a product violates its cost structure bounds.
var ErrInvalidProduct = errors.New("invalid product")

// DefaultBaseWeeklySales is the opening sales volume when a product does not set one.
const DefaultBaseWeeklySales = 8

// Product is a sellable catalog item. Products are defined at startup and never mutated.
type Product struct {
	ID                   string  `json:"id" yaml:"id"`
	Name                 string  `json:"name" yaml:"name"`
	Category             string  `json:"category" yaml:"category"`
	BasePrice            float64 `json:"base_price" yaml:"base_price"`                         // currency units, > 0
	MaterialCost         float64 `json:"material_cost" yaml:"material_cost"`                   // per unit, 0 < cost < base price
	InitialMarketingCost float64 `json:"initial_marketing_cost" yaml:"initial_marketing_cost"` // per period, >= 0
	BaseWeeklySales      int     `json:"base_weekly_sales" yaml:"base_weekly_sales"`           // opening units per week
}

// Validate checks the product's cost structure.
func (p Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidProduct)
	}
	if p.BasePrice <= 0 {
		return fmt.Errorf("%w: %s: base price must be positive", ErrInvalidProduct, p.ID)
	}
	if p.MaterialCost <= 0 || p.MaterialCost >= p.BasePrice {
		return fmt.Errorf("%w: %s: material cost must be in (0, base price)", ErrInvalidProduct, p.ID)
	}
	if p.InitialMarketingCost < 0 {
		return fmt.Errorf("%w: %s: marketing cost must be non-negative", ErrInvalidProduct, p.ID)
	}
	if p.BaseWeeklySales < 0 {
		return fmt.Errorf("%w: %s: base weekly sales must be non-negative", ErrInvalidProduct, p.ID)
	}
	return nil
}

// OpeningSales returns BaseWeeklySales, or the default when unset.
func (p Product) OpeningSales() int {
	if p.BaseWeeklySales <= 0 {
		return DefaultBaseWeeklySales
	}
	return p.BaseWeeklySales
}

// DefaultCatalog is the built-in product list used when no catalog file is configured.
func DefaultCatalog() []Product {
	return []Product{
		{ID: "madhubani-painting", Name: "Madhubani Painting", Category: "Painting", BasePrice: 2500, MaterialCost: 800, InitialMarketingCost: 1200, BaseWeeklySales: 8},
		{ID: "terracotta-vase", Name: "Terracotta Vase", Category: "Pottery", BasePrice: 1200, MaterialCost: 350, InitialMarketingCost: 600, BaseWeeklySales: 12},
		{ID: "handloom-saree", Name: "Handloom Saree", Category: "Textile", BasePrice: 6500, MaterialCost: 2800, InitialMarketingCost: 2000, BaseWeeklySales: 4},
		{ID: "dhokra-figurine", Name: "Dhokra Figurine", Category: "Metal Craft", BasePrice: 1800, MaterialCost: 700, InitialMarketingCost: 900, BaseWeeklySales: 6},
		{ID: "bamboo-basket", Name: "Bamboo Basket", Category: "Basketry", BasePrice: 450, MaterialCost: 120, InitialMarketingCost: 300, BaseWeeklySales: 20},
	}
}
