package actuators

import (
	"fmt"
	"sync"

	"github.com/banshee-data/rover/internal/monitoring"
)

// SimMotor logs speed commands and remembers the last one.
type SimMotor struct {
	mu    sync.Mutex
	speed float64
	stops int
}

func NewSimMotor() *SimMotor { return &SimMotor{} }

func (m *SimMotor) SetSpeed(speed float64) error {
	if err := checkRange(speed); err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	m.mu.Lock()
	m.speed = speed
	m.mu.Unlock()
	monitoring.Logf("[MOTOR] speed %.2f", speed)
	return nil
}

func (m *SimMotor) SafeStop() {
	m.mu.Lock()
	m.speed = 0
	m.stops++
	m.mu.Unlock()
	monitoring.Logf("[MOTOR] safe stop")
}

// Speed is the last commanded speed.
func (m *SimMotor) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// Stops counts SafeStop calls.
func (m *SimMotor) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// SimSteering logs steering commands and remembers the last one.
type SimSteering struct {
	mu    sync.Mutex
	steer float64
	stops int
}

func NewSimSteering() *SimSteering { return &SimSteering{} }

func (s *SimSteering) SetSteer(steer float64) error {
	if err := checkRange(steer); err != nil {
		return fmt.Errorf("steering: %w", err)
	}
	s.mu.Lock()
	s.steer = steer
	s.mu.Unlock()
	monitoring.Logf("[STEER] steer %.2f", steer)
	return nil
}

func (s *SimSteering) SafeStop() {
	s.mu.Lock()
	s.steer = 0
	s.stops++
	s.mu.Unlock()
	monitoring.Logf("[STEER] centered")
}

// Steer is the last commanded steering value.
func (s *SimSteering) Steer() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steer
}

// Stops counts SafeStop calls.
func (s *SimSteering) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}
