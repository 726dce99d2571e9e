// Package status polls the cellular modem's signal quality and feeds it to
// the telemetry store on the same pipeline as the sensors.
package status

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/rover/internal/pipeline"
	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/timeutil"
)

// DefaultInterval is the modem poll period.
const DefaultInterval = 500 * time.Millisecond

// Provider reports signal quality in percent.
type Provider interface {
	PollSignalQuality(ctx context.Context) (uint32, error)
}

// SimProvider returns a random signal quality.
type SimProvider struct{}

func (SimProvider) PollSignalQuality(ctx context.Context) (uint32, error) {
	return rand.Uint32N(101), nil
}

// Reader adapts a Provider to the sensor Reader contract.
type Reader struct {
	Provider Provider
}

func (r Reader) Poll(ctx context.Context) (telemetry.Reading, error) {
	pct, err := r.Provider.PollSignalQuality(ctx)
	if err != nil {
		return nil, err
	}
	return telemetry.SignalQuality{Percent: pct}, nil
}

// NewMonitor returns the status pipeline for p. A zero interval uses
// DefaultInterval.
func NewMonitor(p Provider, sink pipeline.Sink, interval time.Duration, clock timeutil.Clock) *pipeline.Pipeline {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &pipeline.Pipeline{
		Name:     "MODEM",
		Reader:   Reader{Provider: p},
		Sink:     sink,
		Interval: interval,
		Clock:    clock,
	}
}
