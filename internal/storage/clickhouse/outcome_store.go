package clickhouse

import (
	"context"
	"fmt"
	"time"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using ClickHouse.
type OutcomeStore struct {
	conn *Conn
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(conn *Conn) *OutcomeStore {
	return &OutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert appends one step outcome. MergeTree does not deduplicate rows.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.StrategyOutcome) error {
	if o == nil || o.SessionID == "" || o.Strategy == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO strategy_outcomes (
			session_id, product_id, strategy, week,
			demand, price, sales, earnings,
			market_demand, total_profit, recorded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		o.SessionID, o.ProductID, o.Strategy, int32(o.Week),
		o.Demand, o.Price, int32(o.Sales), o.Earnings,
		o.MarketDemand, o.TotalProfit, o.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySession retrieves all outcomes of a session, ordered by week ASC.
func (s *OutcomeStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.StrategyOutcome, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			session_id, product_id, strategy, week,
			demand, price, sales, earnings,
			market_demand, total_profit, recorded_at
		FROM strategy_outcomes
		WHERE session_id = ?
		ORDER BY week ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategyOutcome
	for rows.Next() {
		var (
			o           domain.StrategyOutcome
			week, sales int32
			recordedAt  time.Time
		)
		err := rows.Scan(
			&o.SessionID, &o.ProductID, &o.Strategy, &week,
			&o.Demand, &o.Price, &sales, &o.Earnings,
			&o.MarketDemand, &o.TotalProfit, &recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Week = int(week)
		o.Sales = int(sales)
		o.RecordedAt = recordedAt
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return result, nil
}

// SummarizeByStrategy aggregates outcomes per strategy, ordered by strategy name.
// An empty productID aggregates across all products.
func (s *OutcomeStore) SummarizeByStrategy(ctx context.Context, productID string) ([]*domain.StrategySummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT
			strategy,
			count()       AS steps,
			avg(earnings) AS mean_earnings,
			avg(sales)    AS mean_sales,
			avg(demand)   AS mean_demand,
			max(earnings) AS max_earnings,
			min(earnings) AS min_earnings
		FROM strategy_outcomes
		WHERE ? = '' OR product_id = ?
		GROUP BY strategy
		ORDER BY strategy ASC
	`, productID, productID)
	if err != nil {
		return nil, fmt.Errorf("query strategy summary: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategySummary
	for rows.Next() {
		var (
			sum   domain.StrategySummary
			steps uint64
		)
		err := rows.Scan(
			&sum.Strategy, &steps,
			&sum.MeanEarnings, &sum.MeanSales, &sum.MeanDemand,
			&sum.MaxEarnings, &sum.MinEarnings,
		)
		if err != nil {
			return nil, fmt.Errorf("scan strategy summary: %w", err)
		}
		sum.Steps = int(steps)
		result = append(result, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy summary: %w", err)
	}
	return result, nil
}
