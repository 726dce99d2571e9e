// Package sensors provides the real and simulated readers for every onboard
// sensor. Both variants of a sensor satisfy Reader, so the telemetry
// pipelines never know which one they are polling.
package sensors

import (
	"context"
	"errors"
	"math"

	"github.com/banshee-data/rover/internal/telemetry"
)

var (
	// ErrNoData means no reading is available yet and the caller should
	// poll again. It never signals a permanent failure.
	ErrNoData = errors.New("sensors: no data yet")
	// ErrNotReady is returned when a conversion did not complete in time.
	ErrNotReady = errors.New("sensors: conversion not ready")
	// ErrClosed is returned once the reader's source has been closed.
	ErrClosed = errors.New("sensors: source closed")
)

// Reader produces readings from one sensor. Poll either blocks until a
// reading is available (GPS) or returns immediately with a fallible result.
type Reader interface {
	Poll(ctx context.Context) (telemetry.Reading, error)
}

// Bus is the register-level access the real readers need. *hwbus.Bus
// implements it; every call is one locked transaction.
type Bus interface {
	ReadReg(addr uint16, reg byte, buf []byte) error
	WriteReg(addr uint16, reg byte, data ...byte) error
}

const (
	radToDeg = 180 / math.Pi
	degToRad = math.Pi / 180
)

// normalizeHeading wraps deg into [0,360).
func normalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
