package storage

import (
	"context"

	"growth-wallet/internal/domain"
)

// ProductStore provides access to the products catalog.
type ProductStore interface {
	// Insert adds a new product. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, p *domain.Product) error

	// InsertBulk adds multiple products atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, products []*domain.Product) error

	// GetByID retrieves a product by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, productID string) (*domain.Product, error)

	// GetAll retrieves all products ordered by id.
	GetAll(ctx context.Context) ([]*domain.Product, error)
}

// HistoryStore provides access to simulation_history storage.
// Entries are append-only; a reset starts a new session rather than rewriting rows.
type HistoryStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
	Insert(ctx context.Context, e *domain.RecordedEntry) error

	// GetBySession retrieves all entries of a session, ordered by week ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.RecordedEntry, error)

	// GetByProduct retrieves all entries for a product, ordered by recorded_at, week ASC.
	GetByProduct(ctx context.Context, productID string) ([]*domain.RecordedEntry, error)
}

// OutcomeStore provides access to strategy_outcomes analytics storage.
type OutcomeStore interface {
	// Insert appends one step outcome.
	Insert(ctx context.Context, o *domain.StrategyOutcome) error

	// GetBySession retrieves all outcomes of a session, ordered by week ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.StrategyOutcome, error)

	// SummarizeByStrategy aggregates outcomes per strategy, ordered by strategy name.
	// An empty productID summarizes every product.
	SummarizeByStrategy(ctx context.Context, productID string) ([]*domain.StrategySummary, error)
}
