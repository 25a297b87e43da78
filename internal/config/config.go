// Package config loads process settings from the environment and the product
// catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"growth-wallet/internal/domain"
)

// Prefix is prepended to every environment variable, e.g. WALLET_HTTP_ADDR.
const Prefix = "WALLET"

// ErrInvalidConfig is returned when loaded settings are inconsistent.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds process-level settings.
type Config struct {
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE" default:"growth_wallet"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Storage. UseMemory skips both databases.
	UseMemory     bool   `envconfig:"USE_MEMORY" default:"false"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`

	// Catalog
	CatalogFile    string `envconfig:"CATALOG_FILE"`
	CatalogWatch   bool   `envconfig:"CATALOG_WATCH" default:"false"` // reload CatalogFile on change
	DefaultProduct string `envconfig:"DEFAULT_PRODUCT"`

	// Autopilot
	AutopilotInterval   time.Duration `envconfig:"AUTOPILOT_INTERVAL" default:"3s"`
	AutopilotStrategies []string      `envconfig:"AUTOPILOT_STRATEGIES"`
	AutopilotLogLimit   int           `envconfig:"AUTOPILOT_LOG_LIMIT" default:"50"`

	// Simulation overrides; zero keeps the built-in value.
	MaxWeeklySales int     `envconfig:"MAX_WEEKLY_SALES"`
	ProfitCeiling  float64 `envconfig:"PROFIT_CEILING"`
}

// Load reads an optional .env file and then the WALLET_* environment.
func Load() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSimulation reads the same sources as Load for offline runs. Storage
// settings are ignored, so no DSN is required.
func LoadSimulation() (domain.Config, error) {
	cfg, err := process()
	if err != nil {
		return domain.Config{}, err
	}
	if err := cfg.validateSimulation(); err != nil {
		return domain.Config{}, err
	}
	return cfg.Simulation(), nil
}

func process() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.AutopilotInterval <= 0 {
		return fmt.Errorf("%w: autopilot interval must be positive", ErrInvalidConfig)
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("%w: WALLET_POSTGRES_DSN required unless WALLET_USE_MEMORY=true", ErrInvalidConfig)
	}
	return c.validateSimulation()
}

func (c *Config) validateSimulation() error {
	if c.MaxWeeklySales < 0 || c.ProfitCeiling < 0 {
		return fmt.Errorf("%w: simulation caps must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Simulation returns the game-balance constants with overrides applied.
func (c *Config) Simulation() domain.Config {
	sim := domain.DefaultConfig()
	if c.MaxWeeklySales > 0 {
		sim.MaxWeeklySales = c.MaxWeeklySales
	}
	if c.ProfitCeiling > 0 {
		sim.ProfitCeiling = c.ProfitCeiling
	}
	if len(c.AutopilotStrategies) > 0 {
		sim.AutopilotStrategies = append([]string(nil), c.AutopilotStrategies...)
	}
	return sim
}

// catalogFile is the YAML layout of a catalog file.
type catalogFile struct {
	Products []domain.Product `yaml:"products"`
}

// LoadCatalog reads products from a YAML file. An empty path yields the
// built-in catalog. Every product is validated and ids must be unique.
func LoadCatalog(path string) ([]domain.Product, error) {
	if path == "" {
		return domain.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) ([]domain.Product, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("%w: catalog has no products", domain.ErrInvalidProduct)
	}

	seen := make(map[string]struct{}, len(file.Products))
	for i := range file.Products {
		p := &file.Products[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidProduct, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.BaseWeeklySales == 0 {
			p.BaseWeeklySales = domain.DefaultBaseWeeklySales
		}
	}
	return file.Products, nil
}
