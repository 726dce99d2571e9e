//go:build real_actuators

package main

import (
	"fmt"

	"github.com/banshee-data/rover/internal/actuators"
	"github.com/banshee-data/rover/internal/config"
)

func newActuators(cfg *config.Config, bus *sharedBus) (*actuatorSet, error) {
	b, err := bus.Get()
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}
	pwm, err := actuators.NewPWM(b, uint16(cfg.GetPWMAddress()))
	if err != nil {
		return nil, err
	}
	motor, err := actuators.NewPWMMotor(pwm, cfg.GetMotorChannel())
	if err != nil {
		return nil, err
	}
	steering, err := actuators.NewPWMSteering(pwm, cfg.GetSteeringChannel(),
		cfg.GetSteeringCenterUs(), cfg.GetSteeringRangeUs())
	if err != nil {
		return nil, err
	}
	return &actuatorSet{Motor: motor, Steering: steering}, nil
}
