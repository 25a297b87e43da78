// Package autopilot drives a simulation on a fixed period with randomly
// chosen strategies.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/strategy"
)

// Autopilot errors
var (
	ErrNoStrategies    = errors.New("autopilot requires at least one strategy")
	ErrInvalidInterval = errors.New("autopilot interval must be positive")
)

// DefaultLogLimit is the number of log lines retained for display.
const DefaultLogLimit = 50

// Stepper applies one strategy. *simulation.Simulation satisfies it.
type Stepper interface {
	Step(kind strategy.Kind) (domain.StepResult, error)
}

// LogLine is one timestamped autopilot event.
type LogLine struct {
	At       time.Time `json:"at"`
	Strategy string    `json:"strategy"`
	Text     string    `json:"text"`
	Err      string    `json:"error,omitempty"`
}

// String renders the line for display.
func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s", l.At.Format("15:04:05"), l.Text)
}

// Options configures an Autopilot.
type Options struct {
	Stepper    Stepper
	Strategies []strategy.Kind
	Logger     *zap.Logger
	Rand       *rand.Rand
	LogLimit   int
	Clock      func() time.Time

	// OnStep is called after every committed step, from the autopilot goroutine.
	OnStep func(domain.StepResult)
}

// Autopilot runs at most one loop goroutine; each tick calls Stepper.Step once,
// so autopilot steps never overlap each other.
type Autopilot struct {
	stepper    Stepper
	strategies []strategy.Kind
	logger     *zap.Logger
	logLimit   int
	now        func() time.Time
	onStep     func(domain.StepResult)

	// stopMu serializes Stop so a concurrent caller also waits for the loop to exit
	stopMu sync.Mutex

	mu      sync.Mutex
	rng     *rand.Rand
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	lines   []LogLine
	ticks   int
}

// New creates a stopped autopilot.
func New(opts Options) (*Autopilot, error) {
	if len(opts.Strategies) == 0 {
		return nil, ErrNoStrategies
	}
	for _, k := range opts.Strategies {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %s", strategy.ErrInvalidStrategy, k)
		}
	}

	a := &Autopilot{
		stepper:    opts.Stepper,
		strategies: append([]strategy.Kind(nil), opts.Strategies...),
		logger:     opts.Logger,
		logLimit:   opts.LogLimit,
		now:        opts.Clock,
		onStep:     opts.OnStep,
		rng:        opts.Rand,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.logLimit <= 0 {
		a.logLimit = DefaultLogLimit
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return a, nil
}

// Start begins ticking every interval. Starting a running autopilot is a no-op.
func (a *Autopilot) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.running = true
	a.cancel = cancel
	a.done = done

	go a.loop(ctx, interval, done)

	a.logger.Info("autopilot started", zap.Duration("interval", interval))
	return nil
}

// Stop halts the loop and waits for an in-flight tick to finish.
// After Stop returns no further step is issued. Stop is idempotent.
func (a *Autopilot) Stop() {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()

	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	cancel, done := a.cancel, a.done
	a.running = false
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()

	cancel()
	<-done

	a.logger.Info("autopilot stopped")
}

// Running reports whether the loop is active.
func (a *Autopilot) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Log returns the retained log lines, oldest first.
func (a *Autopilot) Log() []LogLine {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]LogLine, len(a.lines))
	copy(out, a.lines)
	return out
}

// Ticks returns the number of ticks executed since creation.
func (a *Autopilot) Ticks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ticks
}

func (a *Autopilot) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// both channels may be ready; cancellation wins
			if ctx.Err() != nil {
				return
			}
			a.tick()
		}
	}
}

// tick picks a strategy uniformly at random and applies it.
func (a *Autopilot) tick() {
	a.mu.Lock()
	kind := a.strategies[a.rng.Intn(len(a.strategies))]
	a.ticks++
	a.mu.Unlock()

	res, err := a.stepper.Step(kind)
	line := LogLine{At: a.now(), Strategy: kind.String()}
	if err != nil {
		line.Text = fmt.Sprintf("%s failed: %v", kind, err)
		line.Err = err.Error()
		a.logger.Warn("autopilot step failed", zap.String("strategy", kind.String()), zap.Error(err))
	} else {
		line.Text = describe(res)
		a.logger.Debug("autopilot step",
			zap.String("strategy", kind.String()),
			zap.Int("week", res.After.WeeksRunning),
			zap.Float64("price", res.After.Price),
			zap.Int("sales", res.After.Sales),
			zap.Float64("earnings", res.After.Earnings),
		)
	}

	a.mu.Lock()
	a.lines = append(a.lines, line)
	if len(a.lines) > a.logLimit {
		a.lines = a.lines[len(a.lines)-a.logLimit:]
	}
	a.mu.Unlock()

	if err == nil && a.onStep != nil {
		a.onStep(res)
	}
}

func describe(res domain.StepResult) string {
	return fmt.Sprintf("Week %d: %s -> price %s, %d sales, earnings %s",
		res.After.WeeksRunning,
		res.Strategy,
		humanize.Commaf(round2(res.After.Price)),
		res.After.Sales,
		humanize.Commaf(round2(res.After.Earnings)),
	)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
