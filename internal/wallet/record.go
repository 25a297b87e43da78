package wallet

import (
	"context"
	"time"

	"go.uber.org/zap"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/idhash"
	"growth-wallet/internal/stream"
)

// record persists, measures and streams a committed step. Failures are logged
// and counted; the in-memory state is already committed.
func (s *Service) record(ctx context.Context, res domain.StepResult, source string) {
	s.metrics.RecordStep(res.Strategy, source, res.Demand,
		res.After.Price, res.After.MarketDemand, res.After.TotalProfit, res.After.WeeksRunning)

	ctx, cancel := s.persistContext(ctx)
	defer cancel()

	s.insertHistory(ctx, &domain.RecordedEntry{
		EntryID:    idhash.ComputeEntryID(res.SessionID, res.Entry.Week),
		SessionID:  res.SessionID,
		ProductID:  res.ProductID,
		Strategy:   res.Strategy,
		Entry:      res.Entry,
		RecordedAt: res.At,
	})

	if s.outcomes != nil {
		start := time.Now()
		err := s.outcomes.Insert(ctx, &domain.StrategyOutcome{
			SessionID:    res.SessionID,
			ProductID:    res.ProductID,
			Strategy:     res.Strategy,
			Week:         res.After.WeeksRunning,
			Demand:       res.Demand,
			Price:        res.After.Price,
			Sales:        res.After.Sales,
			Earnings:     res.After.Earnings,
			MarketDemand: res.After.MarketDemand,
			TotalProfit:  res.After.TotalProfit,
			RecordedAt:   res.At,
		})
		s.metrics.RecordDBQuery("outcomes", "insert", time.Since(start).Seconds(), err)
		if err != nil {
			s.logger.Error("persist strategy outcome failed",
				zap.String("session_id", res.SessionID),
				zap.Int("week", res.After.WeeksRunning),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("step committed",
		zap.String("source", source),
		zap.String("session_id", res.SessionID),
		zap.String("strategy", res.Strategy),
		zap.Int("week", res.After.WeeksRunning),
		zap.Float64("price", res.After.Price),
		zap.Int("sales", res.After.Sales),
		zap.Float64("earnings", res.After.Earnings),
	)

	step := res
	s.publish(stream.Event{
		Type:      stream.EventStep,
		SessionID: res.SessionID,
		ProductID: res.ProductID,
		Step:      &step,
		At:        res.At,
	})
}

// recordSnapshot persists the week 0 entry of a fresh or reset session.
func (s *Service) recordSnapshot(ctx context.Context, sessionID, productID string, state domain.SimulationState) {
	ctx, cancel := s.persistContext(ctx)
	defer cancel()

	s.insertHistory(ctx, &domain.RecordedEntry{
		EntryID:    idhash.ComputeEntryID(sessionID, 0),
		SessionID:  sessionID,
		ProductID:  productID,
		Entry:      state.Snapshot(0),
		RecordedAt: s.now(),
	})
}

func (s *Service) insertHistory(ctx context.Context, e *domain.RecordedEntry) {
	if s.history == nil {
		return
	}

	start := time.Now()
	err := s.history.Insert(ctx, e)
	s.metrics.RecordDBQuery("history", "insert", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("persist history entry failed",
			zap.String("session_id", e.SessionID),
			zap.Int("week", e.Entry.Week),
			zap.Error(err),
		)
	}
}

// persistContext detaches from the caller's cancellation so a dropped HTTP
// client does not abort a write for an already committed step.
func (s *Service) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
}
