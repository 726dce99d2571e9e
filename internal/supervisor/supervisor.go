// Package supervisor owns the root cancellation context of the process and
// the goroutines derived from it.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/rover/internal/monitoring"
)

// Supervisor starts tasks on child contexts of one root context. Cancelling
// the root stops every task; cancelling a child stops only that task.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

// New derives the root context from parent.
func New(parent context.Context) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel}
}

// Context is the root context.
func (s *Supervisor) Context() context.Context { return s.ctx }

// Go runs fn on its own child context and returns the func that cancels it.
// A non-nil error from fn is logged.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) context.CancelFunc {
	ctx, cancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			monitoring.Logf("[SUPERVISOR] %s exited: %v", name, err)
		}
	}()
	return cancel
}

// Shutdown cancels the root context. Only the first call has an effect.
func (s *Supervisor) Shutdown(reason string) {
	s.once.Do(func() {
		monitoring.Logf("[SUPERVISOR] shutting down: %s", reason)
		s.cancel()
	})
}

// WatchSignals shuts down on SIGINT or SIGTERM. The watcher stops when the
// root context is done.
func (s *Supervisor) WatchSignals() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			s.Shutdown(sig.String())
		case <-s.ctx.Done():
		}
	}()
}

// Wait blocks until every task started with Go has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// WaitTimeout is Wait bounded by d. It reports whether all tasks finished.
func (s *Supervisor) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
