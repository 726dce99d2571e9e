//go:build !real_actuators

package main

import (
	"github.com/banshee-data/rover/internal/actuators"
	"github.com/banshee-data/rover/internal/config"
)

func newActuators(_ *config.Config, _ *sharedBus) (*actuatorSet, error) {
	return &actuatorSet{Motor: actuators.NewSimMotor(), Steering: actuators.NewSimSteering()}, nil
}
