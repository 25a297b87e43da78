package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/storage"
)

// HistoryStore implements storage.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *Pool
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(pool *Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

const insertHistorySQL = `
	INSERT INTO simulation_history (
		entry_id, session_id, product_id, strategy,
		week, price, earnings, sales, marketing_cost,
		recorded_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const selectHistoryColumns = `
	SELECT
		entry_id, session_id, product_id, strategy,
		week, price, earnings, sales, marketing_cost,
		recorded_at
	FROM simulation_history
`

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id or (session, week) exists.
func (s *HistoryStore) Insert(ctx context.Context, e *domain.RecordedEntry) error {
	if e == nil || e.EntryID == "" || e.SessionID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertHistorySQL, historyArgs(e)...)
	if err != nil {
		return mapInsertError("insert history entry", err)
	}
	return nil
}

// GetBySession retrieves all entries of a session, ordered by week ASC.
func (s *HistoryStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.RecordedEntry, error) {
	rows, err := s.pool.Query(ctx, selectHistoryColumns+`
		WHERE session_id = $1
		ORDER BY week ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get history by session: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// GetByProduct retrieves all entries for a product, ordered by recorded_at, week ASC.
func (s *HistoryStore) GetByProduct(ctx context.Context, productID string) ([]*domain.RecordedEntry, error) {
	rows, err := s.pool.Query(ctx, selectHistoryColumns+`
		WHERE product_id = $1
		ORDER BY recorded_at ASC, week ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("get history by product: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

func historyArgs(e *domain.RecordedEntry) []any {
	return []any{
		e.EntryID, e.SessionID, e.ProductID, e.Strategy,
		e.Entry.Week, e.Entry.Price, e.Entry.Earnings, e.Entry.Sales, e.Entry.MarketingCost,
		e.RecordedAt,
	}
}

func mapInsertError(op string, err error) error {
	switch {
	case isDuplicateKeyError(err):
		return storage.ErrDuplicateKey
	case isForeignKeyError(err):
		return fmt.Errorf("%s: unknown product: %w", op, storage.ErrInvalidInput)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// scanHistory scans multiple rows into a slice of RecordedEntry.
func scanHistory(rows pgx.Rows) ([]*domain.RecordedEntry, error) {
	var entries []*domain.RecordedEntry

	for rows.Next() {
		var e domain.RecordedEntry
		err := rows.Scan(
			&e.EntryID, &e.SessionID, &e.ProductID, &e.Strategy,
			&e.Entry.Week, &e.Entry.Price, &e.Entry.Earnings, &e.Entry.Sales, &e.Entry.MarketingCost,
			&e.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
