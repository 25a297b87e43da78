package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"growth-wallet/internal/config"
	"growth-wallet/internal/storage"
	chstore "growth-wallet/internal/storage/clickhouse"
	"growth-wallet/internal/storage/memory"
	"growth-wallet/internal/storage/migrations"
	pgstore "growth-wallet/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	products storage.ProductStore
	history  storage.HistoryStore
	outcomes storage.OutcomeStore
}

// createStores connects the configured backends and applies migrations.
// Without a ClickHouse DSN, outcomes stay in memory.
func createStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*allStores, func(), error) {
	if cfg.UseMemory {
		stores := &allStores{
			products: memory.NewProductStore(),
			history:  memory.NewHistoryStore(),
			outcomes: memory.NewOutcomeStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &allStores{
		products: pgstore.NewProductStore(pool),
		history:  pgstore.NewHistoryStore(pool),
	}

	if cfg.ClickhouseDSN == "" {
		logger.Warn("no ClickHouse DSN configured, strategy outcomes kept in memory")
		stores.outcomes = memory.NewOutcomeStore()
		return stores, pool.Close, nil
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.outcomes = chstore.NewOutcomeStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
