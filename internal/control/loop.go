package control

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/rover/internal/actuators"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/timeutil"
)

const (
	// DefaultDeadMan is how long the loop waits for a fresh command before
	// forcing the motor to zero.
	DefaultDeadMan = 500 * time.Millisecond
	// DefaultRetryDelay paces resubscription while the source is down.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Loop applies Update events from Source to the actuators. Every wait for
// the next event is bounded by DeadMan; when it elapses the motor is set to
// zero and a new window starts. Steering is left where it is.
//
// On cancellation both actuators are safe-stopped exactly once before Run
// returns.
type Loop struct {
	Source     Source
	Motor      actuators.Motor
	Steering   actuators.Steering
	DeadMan    time.Duration
	RetryDelay time.Duration
	Clock      timeutil.Clock

	// owned by the Run goroutine
	steer       float64
	engaged     bool
	steerLogged bool

	stopOnce sync.Once
	stats    struct {
		applied, ignored, decodeErrors atomic.Int64
		timeouts, subscribeFailures    atomic.Int64
		streamErrors                   atomic.Int64
	}
}

// Stats counts what the loop has done since it started.
type Stats struct {
	Applied           int64 `json:"applied"`
	Ignored           int64 `json:"ignored"`
	DecodeErrors      int64 `json:"decode_errors"`
	Timeouts          int64 `json:"timeouts"`
	SubscribeFailures int64 `json:"subscribe_failures"`
	StreamErrors      int64 `json:"stream_errors"`
}

// Stats is safe to call while Run is active.
func (l *Loop) Stats() Stats {
	return Stats{
		Applied:           l.stats.applied.Load(),
		Ignored:           l.stats.ignored.Load(),
		DecodeErrors:      l.stats.decodeErrors.Load(),
		Timeouts:          l.stats.timeouts.Load(),
		SubscribeFailures: l.stats.subscribeFailures.Load(),
		StreamErrors:      l.stats.streamErrors.Load(),
	}
}

// Run subscribes, applies commands and resubscribes after stream failures
// until ctx is cancelled. It always returns nil; failures are logged.
func (l *Loop) Run(ctx context.Context) error {
	if l.Clock == nil {
		l.Clock = timeutil.RealClock{}
	}
	if l.DeadMan <= 0 {
		l.DeadMan = DefaultDeadMan
	}
	if l.RetryDelay <= 0 {
		l.RetryDelay = DefaultRetryDelay
	}
	defer l.safeStop()

	for ctx.Err() == nil {
		sub, err := l.Source.LiveControl(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			l.stats.subscribeFailures.Add(1)
			monitoring.Logf("[CONTROL] subscribe failed: %v", err)
			if l.engaged {
				l.zeroSpeed("command stream down")
			}
			select {
			case <-ctx.Done():
			case <-l.Clock.After(l.RetryDelay):
			}
			continue
		}

		monitoring.Logf("[CONTROL] subscribed to live control")
		err = l.consume(ctx, sub)
		if cerr := sub.Close(); cerr != nil {
			monitoring.Logf("[CONTROL] close subscription: %v", cerr)
		}
		if err != nil {
			l.stats.streamErrors.Add(1)
			monitoring.Logf("[CONTROL] stream error: %v, resubscribing", err)
		}
	}
	return nil
}

// consume waits on sub until the stream ends or ctx is done. Each wait is a
// fresh dead-man window.
func (l *Loop) consume(ctx context.Context, sub Subscription) error {
	events := sub.Events()
	for {
		if ctx.Err() != nil {
			return nil
		}

		timer := l.Clock.NewTimer(l.DeadMan)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-events:
			timer.Stop()
			if !ok {
				if err := sub.Err(); err != nil {
					return err
				}
				return ErrStreamClosed
			}
			l.handle(ev)

		case <-timer.C():
			l.stats.timeouts.Add(1)
			l.zeroSpeed("no update within " + l.DeadMan.String())
		}
	}
}

func (l *Loop) handle(ev Event) {
	if ev.Action != Update {
		l.stats.ignored.Add(1)
		return
	}
	if ev.Err != nil {
		l.stats.decodeErrors.Add(1)
		monitoring.Logf("[CONTROL] error: decode command %s: %v", ev.ID, ev.Err)
		return
	}

	cmd := ev.Command
	if err := l.Steering.SetSteer(cmd.Steer); err != nil {
		monitoring.Logf("[CONTROL] error: set steer %.2f: %v", cmd.Steer, err)
	} else {
		l.steer = cmd.Steer
	}
	if err := l.Motor.SetSpeed(cmd.Speed); err != nil {
		monitoring.Logf("[CONTROL] error: set speed %.2f: %v", cmd.Speed, err)
	} else {
		l.engaged = cmd.Speed != 0
	}
	l.steerLogged = false
	l.stats.applied.Add(1)
}

// zeroSpeed is the fail-safe. It logs as a stale command, not an error.
func (l *Loop) zeroSpeed(reason string) {
	monitoring.Logf("[CONTROL] stale command: %s, zeroing speed", reason)
	if err := l.Motor.SetSpeed(0); err != nil {
		monitoring.Logf("[CONTROL] error: zero speed: %v", err)
	} else {
		l.engaged = false
	}
	if l.steer != 0 && !l.steerLogged {
		monitoring.Logf("[CONTROL] stale command: steering held at %.2f", l.steer)
		l.steerLogged = true
	}
}

func (l *Loop) safeStop() {
	l.stopOnce.Do(func() {
		monitoring.Logf("[CONTROL] cancelled, stopping actuators")
		l.Motor.SafeStop()
		l.Steering.SafeStop()
	})
}
