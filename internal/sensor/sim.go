package sensor

import (
	"errors"
	"sync"
)

// Sim is an in-memory Source for development runs and tests.
//
// Samples are served from a queue when one has been pushed, otherwise from
// an optional steady rate that yields a sample on every poll. Tests drive
// exact sequences with PushRate; simulated units typically set a steady
// rate and let the loop free-run.
type Sim struct {
	mu      sync.Mutex
	queue   []AngularRate
	steady  *AngularRate
	env     Environment
	failEnv bool
	failIMU bool
	inited  bool
}

var _ Source = (*Sim)(nil)

// NewSim returns a Sim with a room-temperature environment, no pending
// samples and no steady rate.
func NewSim() *Sim {
	return &Sim{
		env: Environment{TempC: 21.5, HumidityRH: 40.0},
	}
}

// FailEnv makes Init report the environment sensor as unavailable.
func (s *Sim) FailEnv() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEnv = true
}

// FailIMU makes Init report the IMU as unavailable.
func (s *Sim) FailIMU() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failIMU = true
}

// Init acquires the simulated sensors.
func (s *Sim) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.failEnv {
		errs = append(errs, ErrEnvSensor)
	}
	if s.failIMU {
		errs = append(errs, ErrIMUSensor)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.inited = true
	return nil
}

// PushRate queues one gyroscope sample. Queued samples are returned in
// order, ahead of any steady rate.
func (s *Sim) PushRate(r AngularRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, r)
}

// SetSteadyRate makes every poll return r once the queue is drained.
func (s *Sim) SetSteadyRate(r AngularRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steady = &r
}

// ClearSteadyRate removes the steady rate; polls return no sample once the
// queue is drained.
func (s *Sim) ClearSteadyRate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steady = nil
}

// AngularRate returns the next queued sample, the steady rate, or nothing.
func (s *Sim) AngularRate() (AngularRate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		r := s.queue[0]
		s.queue = s.queue[1:]
		return r, true
	}
	if s.steady != nil {
		return *s.steady, true
	}
	return AngularRate{}, false
}

// SetEnvironment replaces the simulated environmental reading.
func (s *Sim) SetEnvironment(env Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

// Environment returns the simulated environmental reading.
func (s *Sim) Environment() Environment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env
}
