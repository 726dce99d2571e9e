package actuators

import (
	"fmt"

	"github.com/banshee-data/rover/internal/monitoring"
)

// ESC pulse widths.
const (
	MotorNeutralUs = 1500.0
	MotorRangeUs   = 500.0
)

// PWMMotor drives a brushed ESC: 1000µs full reverse, 1500µs stop, 2000µs
// full forward.
type PWMMotor struct {
	pwm     *PWM
	channel int
}

// NewPWMMotor arms the ESC by sending neutral.
func NewPWMMotor(pwm *PWM, channel int) (*PWMMotor, error) {
	m := &PWMMotor{pwm: pwm, channel: channel}
	if err := pwm.SetPulse(channel, MotorNeutralUs); err != nil {
		return nil, fmt.Errorf("motor: arm: %w", err)
	}
	return m, nil
}

func (m *PWMMotor) SetSpeed(speed float64) error {
	if err := checkRange(speed); err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	if err := m.pwm.SetPulse(m.channel, MotorNeutralUs+speed*MotorRangeUs); err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	return nil
}

func (m *PWMMotor) SafeStop() {
	if err := m.pwm.SetPulse(m.channel, MotorNeutralUs); err != nil {
		monitoring.Logf("[MOTOR] safe stop failed: %v", err)
		return
	}
	monitoring.Logf("[MOTOR] safe stop")
}
