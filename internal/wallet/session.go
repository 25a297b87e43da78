package wallet

import (
	"sync"

	"growth-wallet/internal/autopilot"
	"growth-wallet/internal/domain"
	"growth-wallet/internal/simulation"
	"growth-wallet/internal/strategy"
)

// session is one product selection: a simulation, its autopilot and the id
// under which its history is persisted. Reset rotates the id.
type session struct {
	sim   *simulation.Simulation
	pilot *autopilot.Autopilot

	// mu makes a step and the id it is recorded under atomic w.r.t. reset
	mu sync.Mutex
	id string
}

var _ autopilot.Stepper = (*session)(nil)

// Step applies kind and stamps the result with the current session id.
func (s *session) Step(kind strategy.Kind) (domain.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.sim.Step(kind)
	if err != nil {
		return res, err
	}
	res.SessionID = s.id
	return res, nil
}

// reset restores the opening snapshot under a fresh id.
func (s *session) reset(id string) domain.SimulationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id
	return s.sim.Reset()
}

func (s *session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
