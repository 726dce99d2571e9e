// Package pipeline runs one polling loop per sensor, forwarding each reading
// to the telemetry store.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/timeutil"
)

// ErrorBackoff is the minimum pause after a failed poll, so a reader that
// fails immediately cannot spin the CPU.
const ErrorBackoff = 100 * time.Millisecond

// Sink receives readings. Implementations must be safe for concurrent use by
// several pipelines.
type Sink interface {
	Append(ctx context.Context, r telemetry.Reading) error
}

// Pipeline polls Reader and forwards every reading to Sink, pacing itself
// with Interval between iterations. A zero Interval relies on the reader
// blocking, as the GPS does.
type Pipeline struct {
	Name     string
	Reader   sensors.Reader
	Sink     Sink
	Interval time.Duration
	Clock    timeutil.Clock

	polled   atomic.Int64
	appended atomic.Int64
	failures atomic.Int64
}

// Stats counts loop iterations since the pipeline started.
type Stats struct {
	Polled   int64 `json:"polled"`
	Appended int64 `json:"appended"`
	Failures int64 `json:"failures"`
}

// Stats is safe to call while Run is active.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Polled:   p.polled.Load(),
		Appended: p.appended.Load(),
		Failures: p.failures.Load(),
	}
}

// Run loops until ctx is cancelled. Poll and append failures are logged and
// never end the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.Clock == nil {
		p.Clock = timeutil.RealClock{}
	}
	monitoring.Logf("[%s] pipeline started (interval %v)", p.Name, p.Interval)
	defer monitoring.Logf("[%s] pipeline stopped", p.Name)

	for {
		if ctx.Err() != nil {
			return nil
		}

		pause := p.Interval
		reading, err := p.Reader.Poll(ctx)
		p.polled.Add(1)
		switch {
		case err == nil:
			if err := p.Sink.Append(ctx, reading); err != nil {
				p.failures.Add(1)
				monitoring.Logf("[%s] append %s failed: %v", p.Name, reading.Kind(), err)
			} else {
				p.appended.Add(1)
			}
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, sensors.ErrNoData):
		default:
			p.failures.Add(1)
			monitoring.Logf("[%s] poll failed: %v", p.Name, err)
			if pause < ErrorBackoff {
				pause = ErrorBackoff
			}
		}

		if pause > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-p.Clock.After(pause):
			}
		}
	}
}
