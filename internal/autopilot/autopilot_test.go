package autopilot

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"growth-wallet/internal/domain"
	"growth-wallet/internal/simulation"
	"growth-wallet/internal/strategy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingStepper records calls and fails for a configured kind.
type countingStepper struct {
	mu       sync.Mutex
	calls    []strategy.Kind
	inFlight int
	overlap  bool
	failOn   strategy.Kind
}

func (s *countingStepper) Step(kind strategy.Kind) (domain.StepResult, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > 1 {
		s.overlap = true
	}
	s.calls = append(s.calls, kind)
	week := len(s.calls)
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if kind == s.failOn {
		return domain.StepResult{}, errors.New("boom")
	}
	return domain.StepResult{
		Strategy: kind.String(),
		After:    domain.SimulationState{Price: 2875, Sales: 6, Earnings: 11250, WeeksRunning: week},
	}, nil
}

func (s *countingStepper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newAutopilot(t *testing.T, stepper Stepper, kinds ...strategy.Kind) *Autopilot {
	t.Helper()
	if len(kinds) == 0 {
		kinds = []strategy.Kind{strategy.HighDemand, strategy.Balanced}
	}
	a, err := New(Options{
		Stepper:    stepper,
		Strategies: kinds,
		Rand:       rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Stepper: &countingStepper{}})
	assert.ErrorIs(t, err, ErrNoStrategies)

	_, err = New(Options{Stepper: &countingStepper{}, Strategies: []strategy.Kind{strategy.Kind(77)}})
	assert.ErrorIs(t, err, strategy.ErrInvalidStrategy)
}

func TestStart_InvalidInterval(t *testing.T) {
	a := newAutopilot(t, &countingStepper{})
	assert.ErrorIs(t, a.Start(0), ErrInvalidInterval)
	assert.False(t, a.Running())
}

func TestAutopilot_TicksAndStops(t *testing.T) {
	stepper := &countingStepper{}
	a := newAutopilot(t, stepper)

	require.NoError(t, a.Start(5*time.Millisecond))
	assert.True(t, a.Running())

	require.Eventually(t, func() bool { return stepper.count() >= 3 }, 2*time.Second, 5*time.Millisecond)

	a.Stop()
	assert.False(t, a.Running())

	after := stepper.count()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, stepper.count(), "no steps after Stop returns")
	assert.Equal(t, after, a.Ticks())
}

func TestAutopilot_StopIdempotent(t *testing.T) {
	a := newAutopilot(t, &countingStepper{})

	a.Stop() // never started

	require.NoError(t, a.Start(5*time.Millisecond))
	require.NoError(t, a.Start(5*time.Millisecond)) // already running

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Stop()
		}()
	}
	wg.Wait()
	a.Stop()

	assert.False(t, a.Running())
}

func TestAutopilot_Restart(t *testing.T) {
	stepper := &countingStepper{}
	a := newAutopilot(t, stepper)

	require.NoError(t, a.Start(5*time.Millisecond))
	require.Eventually(t, func() bool { return stepper.count() >= 1 }, 2*time.Second, 5*time.Millisecond)
	a.Stop()

	first := stepper.count()
	require.NoError(t, a.Start(5*time.Millisecond))
	require.Eventually(t, func() bool { return stepper.count() > first }, 2*time.Second, 5*time.Millisecond)
	a.Stop()
}

func TestAutopilot_StepsNeverOverlap(t *testing.T) {
	stepper := &countingStepper{}
	a := newAutopilot(t, stepper)

	require.NoError(t, a.Start(time.Millisecond))
	require.Eventually(t, func() bool { return stepper.count() >= 10 }, 2*time.Second, time.Millisecond)
	a.Stop()

	stepper.mu.Lock()
	defer stepper.mu.Unlock()
	assert.False(t, stepper.overlap)
}

func TestAutopilot_ChoosesOnlyAllowedStrategies(t *testing.T) {
	stepper := &countingStepper{}
	a := newAutopilot(t, stepper, strategy.ProfitMax, strategy.Clearance)

	for i := 0; i < 50; i++ {
		a.tick()
	}

	seen := map[strategy.Kind]int{}
	for _, k := range stepper.calls {
		seen[k]++
	}
	assert.Len(t, seen, 2)
	assert.Positive(t, seen[strategy.ProfitMax])
	assert.Positive(t, seen[strategy.Clearance])
}

func TestAutopilot_LogLines(t *testing.T) {
	stepper := &countingStepper{failOn: strategy.Clearance}
	fixed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	var results []domain.StepResult
	a, err := New(Options{
		Stepper:    stepper,
		Strategies: []strategy.Kind{strategy.Clearance},
		Rand:       rand.New(rand.NewSource(1)),
		Clock:      func() time.Time { return fixed },
		LogLimit:   3,
		OnStep:     func(r domain.StepResult) { results = append(results, r) },
	})
	require.NoError(t, err)

	a.tick()
	lines := a.Log()
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0].Err)
	assert.Equal(t, "clearance", lines[0].Strategy)
	assert.Contains(t, lines[0].String(), "[10:30:00]")
	assert.Empty(t, results, "failed steps are not reported")

	a.strategies = []strategy.Kind{strategy.HighDemand}
	for i := 0; i < 4; i++ {
		a.tick()
	}
	lines = a.Log()
	require.Len(t, lines, 3)
	assert.Equal(t, "Week 5: high_demand -> price 2,875, 6 sales, earnings 11,250", lines[2].Text)
	assert.Len(t, results, 4)
}

func TestAutopilot_DrivesRealSimulation(t *testing.T) {
	p := domain.DefaultCatalog()[0]
	sim, err := simulation.New(p, domain.DefaultConfig())
	require.NoError(t, err)

	a := newAutopilot(t, sim, strategy.All()...)
	require.NoError(t, a.Start(2*time.Millisecond))

	// manual steps interleave with autopilot ticks on the same lock
	for i := 0; i < 20; i++ {
		_, err := sim.Step(strategy.Balanced)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return a.Ticks() >= 5 }, 2*time.Second, 2*time.Millisecond)
	a.Stop()

	state := sim.State()
	history := sim.History()
	assert.Equal(t, state.WeeksRunning+1, len(history))
	for i, e := range history {
		assert.Equal(t, i, e.Week)
	}
}
