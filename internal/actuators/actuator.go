// Package actuators drives the rover's propulsion motor and steering servo.
// Real variants write PWM pulses to a PCA9685 on the shared I2C bus;
// simulated variants record and log the commanded value.
package actuators

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned for commands outside [-1,1] or NaN.
var ErrOutOfRange = errors.New("actuators: value out of range")

// Motor is the propulsion actuator. SafeStop never fails from the caller's
// point of view; errors are logged.
type Motor interface {
	SetSpeed(speed float64) error
	SafeStop()
}

// Steering is the steering actuator.
type Steering interface {
	SetSteer(steer float64) error
	SafeStop()
}

func checkRange(v float64) error {
	if math.IsNaN(v) || v < -1 || v > 1 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return nil
}
