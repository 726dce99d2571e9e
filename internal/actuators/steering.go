package actuators

import (
	"fmt"

	"github.com/banshee-data/rover/internal/monitoring"
)

// PWMSteering positions a hobby servo around a trimmed center pulse.
type PWMSteering struct {
	pwm      *PWM
	channel  int
	centerUs float64
	rangeUs  float64
}

// NewPWMSteering centers the servo. centerUs and rangeUs are the pulse for
// straight ahead and the deviation at full lock.
func NewPWMSteering(pwm *PWM, channel int, centerUs, rangeUs float64) (*PWMSteering, error) {
	s := &PWMSteering{pwm: pwm, channel: channel, centerUs: centerUs, rangeUs: rangeUs}
	if err := pwm.SetPulse(channel, centerUs); err != nil {
		return nil, fmt.Errorf("steering: center: %w", err)
	}
	return s, nil
}

func (s *PWMSteering) SetSteer(steer float64) error {
	if err := checkRange(steer); err != nil {
		return fmt.Errorf("steering: %w", err)
	}
	if err := s.pwm.SetPulse(s.channel, s.centerUs+steer*s.rangeUs); err != nil {
		return fmt.Errorf("steering: %w", err)
	}
	return nil
}

func (s *PWMSteering) SafeStop() {
	if err := s.pwm.SetPulse(s.channel, s.centerUs); err != nil {
		monitoring.Logf("[STEER] safe stop failed: %v", err)
		return
	}
	monitoring.Logf("[STEER] centered")
}
