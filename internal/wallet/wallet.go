// Package wallet is the growth wallet service: it owns the active product
// simulation and its autopilot, persists every committed step and streams it
// to subscribers.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"growth-wallet/internal/autopilot"
	"growth-wallet/internal/domain"
	"growth-wallet/internal/idhash"
	"growth-wallet/internal/observability"
	"growth-wallet/internal/simulation"
	"growth-wallet/internal/storage"
	"growth-wallet/internal/stream"
	"growth-wallet/internal/strategy"
)

var (
	// ErrNoActiveProduct is returned by operations that need a selected product.
	ErrNoActiveProduct = errors.New("no active product selected")
	// ErrClosed is returned when starting an autopilot after Close.
	ErrClosed = errors.New("wallet service closed")
)

// Step sources for metrics labels.
const (
	SourceManual    = "manual"
	SourceAutopilot = "autopilot"
)

const (
	defaultAutopilotInterval = 3 * time.Second
	defaultPersistTimeout    = 5 * time.Second
)

// Publisher receives simulation events. *stream.Hub satisfies it.
type Publisher interface {
	Publish(ev stream.Event) error
}

// Options configures a Service. Products is required; everything else is optional.
type Options struct {
	Products storage.ProductStore
	History  storage.HistoryStore
	Outcomes storage.OutcomeStore

	Publisher Publisher
	Metrics   *observability.Metrics
	Logger    *zap.Logger

	Config            domain.Config
	AutopilotInterval time.Duration
	AutopilotLogLimit int
	PersistTimeout    time.Duration

	// Test hooks
	Rand         *rand.Rand
	Clock        func() time.Time
	NewSessionID func() string
}

// Session describes the active selection.
type Session struct {
	SessionID string                 `json:"session_id"`
	Product   domain.Product         `json:"product"`
	State     domain.SimulationState `json:"state"`
	Autopilot bool                   `json:"autopilot"`
}

// Service coordinates the active simulation. Safe for concurrent use.
type Service struct {
	products  storage.ProductStore
	history   storage.HistoryStore
	outcomes  storage.OutcomeStore
	publisher Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger

	cfg            domain.Config
	pilotKinds     []strategy.Kind
	interval       time.Duration
	logLimit       int
	persistTimeout time.Duration
	now            func() time.Time
	newID          func() string

	// rngMu guards rng, shared by successive autopilots
	rngMu sync.Mutex
	rng   *rand.Rand

	// lifecycle serializes session swaps with autopilot start and stop so
	// no autopilot is started on a session that was already replaced.
	// Never held while recording a step.
	lifecycle sync.Mutex
	closed    bool

	mu     sync.Mutex
	active *session
}

// New creates a Service with no product selected.
func New(opts Options) (*Service, error) {
	if opts.Products == nil {
		return nil, errors.New("wallet: product store is required")
	}

	cfg := opts.Config.WithDefaults()
	kinds, err := strategy.ParseAll(cfg.AutopilotStrategies)
	if err != nil {
		return nil, fmt.Errorf("autopilot strategies: %w", err)
	}
	if len(kinds) == 0 {
		return nil, autopilot.ErrNoStrategies
	}

	s := &Service{
		products:       opts.Products,
		history:        opts.History,
		outcomes:       opts.Outcomes,
		publisher:      opts.Publisher,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		cfg:            cfg,
		pilotKinds:     kinds,
		interval:       opts.AutopilotInterval,
		logLimit:       opts.AutopilotLogLimit,
		persistTimeout: opts.PersistTimeout,
		now:            opts.Clock,
		newID:          opts.NewSessionID,
		rng:            opts.Rand,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.interval <= 0 {
		s.interval = defaultAutopilotInterval
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = defaultPersistTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = idhash.NewSessionID
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s, nil
}

// SeedCatalog stores products that are not yet present. Existing ids are kept as is.
func (s *Service) SeedCatalog(ctx context.Context, products []domain.Product) error {
	existing, err := s.products.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.ID] = struct{}{}
	}

	var fresh []*domain.Product
	for i := range products {
		p := products[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if _, ok := known[p.ID]; !ok {
			fresh = append(fresh, &p)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	err = s.products.InsertBulk(ctx, fresh)
	if err == nil {
		s.logger.Info("catalog seeded", zap.Int("products", len(fresh)))
		return nil
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("seed catalog: %w", err)
	}

	// a repeated id in the catalog or a concurrent seeder: insert one by one
	for _, p := range fresh {
		err := s.products.Insert(ctx, p)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

// Product returns one catalog entry.
func (s *Service) Product(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %q: %w", productID, err)
	}
	return p, nil
}

// ProductHistory returns every persisted week of productID across sessions,
// oldest first. Without a history store it returns nil.
func (s *Service) ProductHistory(ctx context.Context, productID string) ([]*domain.RecordedEntry, error) {
	if _, err := s.Product(ctx, productID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	entries, err := s.history.GetByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product history %q: %w", productID, err)
	}
	return entries, nil
}

// Products lists the catalog.
func (s *Service) Products(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// SelectProduct discards the current simulation (stopping its autopilot) and
// starts a fresh one for productID under a new session id.
func (s *Service) SelectProduct(ctx context.Context, productID string) (Session, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return Session{}, fmt.Errorf("select product %q: %w", productID, err)
	}

	sim, err := simulation.New(*p, s.cfg, simulation.WithClock(s.now))
	if err != nil {
		return Session{}, fmt.Errorf("select product %q: %w", productID, err)
	}

	sess := &session{sim: sim, id: s.newID()}
	sess.pilot, err = autopilot.New(autopilot.Options{
		Stepper:    sess,
		Strategies: s.pilotKinds,
		Logger:     s.logger.With(zap.String("product_id", p.ID)),
		Rand:       s.childRand(),
		LogLimit:   s.logLimit,
		Clock:      s.now,
		OnStep: func(res domain.StepResult) {
			s.record(context.Background(), res, SourceAutopilot)
		},
	})
	if err != nil {
		return Session{}, fmt.Errorf("select product %q: %w", productID, err)
	}

	s.lifecycle.Lock()
	s.mu.Lock()
	old := s.active
	s.active = sess
	s.mu.Unlock()

	// outside s.mu: a final tick of the old autopilot may still be recording
	if old != nil {
		old.pilot.Stop()
	}
	s.lifecycle.Unlock()
	s.metrics.SetAutopilotRunning(false)
	s.metrics.RecordProductSelected(p.ID)

	state := sim.State()
	s.recordSnapshot(ctx, sess.ID(), p.ID, state)
	s.metrics.SetState(state.Price, state.MarketDemand, state.TotalProfit, state.WeeksRunning)
	s.publish(stream.Event{Type: stream.EventProduct, SessionID: sess.ID(), ProductID: p.ID, State: &state})

	s.logger.Info("product selected", zap.String("product_id", p.ID), zap.String("session_id", sess.ID()))

	return Session{SessionID: sess.ID(), Product: *p, State: state}, nil
}

// Step applies the named strategy to the active simulation.
func (s *Service) Step(ctx context.Context, name string) (domain.StepResult, error) {
	sess, err := s.current()
	if err != nil {
		return domain.StepResult{}, err
	}

	kind, err := strategy.Parse(name)
	if err != nil {
		s.metrics.RecordInvalidStrategy()
		return domain.StepResult{}, fmt.Errorf("step: %w", err)
	}

	res, err := sess.Step(kind)
	if err != nil {
		return domain.StepResult{}, fmt.Errorf("step: %w", err)
	}

	s.record(ctx, res, SourceManual)
	return res, nil
}

// Reset restores the active simulation to its opening snapshot. The history
// restarts under a new session id; the autopilot keeps its running state.
func (s *Service) Reset(ctx context.Context) (domain.SimulationState, error) {
	sess, err := s.current()
	if err != nil {
		return domain.SimulationState{}, err
	}

	id := s.newID()
	state := sess.reset(id)
	productID := sess.sim.Product().ID

	s.metrics.RecordReset()
	s.metrics.SetState(state.Price, state.MarketDemand, state.TotalProfit, state.WeeksRunning)
	s.recordSnapshot(ctx, id, productID, state)
	s.publish(stream.Event{Type: stream.EventReset, SessionID: id, ProductID: productID, State: &state})

	s.logger.Info("simulation reset", zap.String("product_id", productID), zap.String("session_id", id))
	return state, nil
}

// State returns the active simulation state.
func (s *Service) State() (domain.SimulationState, error) {
	sess, err := s.current()
	if err != nil {
		return domain.SimulationState{}, err
	}
	return sess.sim.State(), nil
}

// History returns the active simulation history, oldest first.
func (s *Service) History() ([]domain.HistoryEntry, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return sess.sim.History(), nil
}

// Session describes the active selection.
func (s *Service) Session() (Session, error) {
	sess, err := s.current()
	if err != nil {
		return Session{}, err
	}
	return Session{
		SessionID: sess.ID(),
		Product:   sess.sim.Product(),
		State:     sess.sim.State(),
		Autopilot: sess.pilot.Running(),
	}, nil
}

// SetAutopilot starts or stops the autopilot of the active simulation.
func (s *Service) SetAutopilot(ctx context.Context, enabled bool) error {
	s.lifecycle.Lock()
	sess, err := s.toggle(enabled)
	s.lifecycle.Unlock()
	if err != nil {
		return err
	}

	s.metrics.SetAutopilotRunning(enabled)
	s.publish(stream.Event{
		Type:      stream.EventAutopilot,
		SessionID: sess.ID(),
		ProductID: sess.sim.Product().ID,
		Autopilot: &enabled,
	})
	s.logger.Info("autopilot toggled", zap.Bool("enabled", enabled), zap.Duration("interval", s.interval))
	return nil
}

// toggle runs under s.lifecycle, so sess is still the active session.
func (s *Service) toggle(enabled bool) (*session, error) {
	if enabled && s.closed {
		return nil, ErrClosed
	}
	sess, err := s.current()
	if err != nil {
		return nil, err
	}

	if enabled {
		if err := sess.pilot.Start(s.interval); err != nil {
			return nil, fmt.Errorf("start autopilot: %w", err)
		}
	} else {
		sess.pilot.Stop()
	}
	return sess, nil
}

// AutopilotLog returns the retained autopilot log lines, oldest first.
func (s *Service) AutopilotLog() ([]autopilot.LogLine, error) {
	sess, err := s.current()
	if err != nil {
		return nil, err
	}
	return sess.pilot.Log(), nil
}

// StrategySummary aggregates persisted outcomes per strategy for productID
// ("" for all products). Without an outcome store it returns nil.
func (s *Service) StrategySummary(ctx context.Context, productID string) ([]*domain.StrategySummary, error) {
	if s.outcomes == nil {
		return nil, nil
	}
	sums, err := s.outcomes.SummarizeByStrategy(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("strategy summary: %w", err)
	}
	return sums, nil
}

// Close stops the active autopilot. Later attempts to start one fail with
// ErrClosed.
func (s *Service) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.closed = true
	s.mu.Lock()
	sess := s.active
	s.mu.Unlock()

	if sess != nil {
		sess.pilot.Stop()
	}
	s.metrics.SetAutopilotRunning(false)
}

func (s *Service) current() (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, ErrNoActiveProduct
	}
	return s.active, nil
}

// childRand derives an independent source for a new autopilot.
func (s *Service) childRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

func (s *Service) publish(ev stream.Event) {
	if s.publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if err := s.publisher.Publish(ev); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
