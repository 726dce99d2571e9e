package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rover/internal/control"
	"github.com/banshee-data/rover/internal/monitoring"
)

// subscriberBuffer is how many undelivered changes a subscriber may queue
// before it is terminated as lagging.
const subscriberBuffer = 32

// change is a committed write to the control table, queued per subscriber.
type change struct {
	action  control.Action
	id      string
	payload []byte
}

// Control returns the stored payload of control record id.
func (s *Store) Control(ctx context.Context, id string) (json.RawMessage, time.Time, error) {
	var (
		payload   string
		updatedAt int64
	)
	err := s.QueryRowContext(ctx, `SELECT payload, updated_at FROM control WHERE id = ?`, id).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return json.RawMessage(payload), time.Unix(0, updatedAt), nil
}

// InsertControl creates control record id and publishes an Insert change.
func (s *Store) InsertControl(ctx context.Context, id string, payload []byte) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO control (id, payload, updated_at) VALUES (?, ?, ?)`,
		id, string(payload), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert control %s: %w", id, err)
	}
	s.publish(change{action: control.Insert, id: id, payload: payload})
	return nil
}

// UpdateControl replaces the payload of control record id and publishes an
// Update change.
func (s *Store) UpdateControl(ctx context.Context, id string, payload []byte) error {
	res, err := s.ExecContext(ctx,
		`UPDATE control SET payload = ?, updated_at = ? WHERE id = ?`,
		string(payload), s.now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("update control %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update control %s: %w", id, ErrNotFound)
	}
	s.publish(change{action: control.Update, id: id, payload: payload})
	return nil
}

// DeleteControl removes control record id and publishes a Delete change.
func (s *Store) DeleteControl(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM control WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete control %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete control %s: %w", id, ErrNotFound)
	}
	s.publish(change{action: control.Delete, id: id})
	return nil
}

// publish queues c for every subscriber. A subscriber with a full queue is
// terminated rather than allowed to block writers.
func (s *Store) publish(c change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subs {
		select {
		case sub.raw <- c:
		default:
			monitoring.Logf("[DB] control subscriber %s lagging, dropping it", id)
			sub.terminate(ErrSubscriberLagging)
			delete(s.subs, id)
		}
	}
}

// LiveControl opens a subscription to control changes committed from now
// on. It ends when ctx is done, the subscriber lags, Close is called on it,
// or the store is closed.
func (s *Store) LiveControl(ctx context.Context) (control.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &Subscription{
		id:     uuid.NewString(),
		store:  s,
		raw:    make(chan change, subscriberBuffer),
		events: make(chan control.Event),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	monitoring.Logf("[DB] control subscriber %s attached", sub.id)
	go sub.pump(ctx)
	return sub, nil
}

// Subscribers reports the number of live control subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[id]; ok {
		sub.terminate(nil)
		delete(s.subs, id)
	}
}

// Subscription delivers decoded control changes. It implements
// control.Subscription.
type Subscription struct {
	id     string
	store  *Store
	raw    chan change
	events chan control.Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
	ended     bool
}

func (s *Subscription) Events() <-chan control.Event { return s.events }

// Err reports why the stream ended. It is nil while the stream is live and
// after a plain Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.store.unsubscribe(s.id)
	})
	return nil
}

// terminate records err and closes the queue. Called with store.mu held.
func (s *Subscription) terminate(err error) {
	s.setErr(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.raw)
	}
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// pump decodes queued changes and hands them to the consumer until the
// queue is closed, the consumer closes the subscription or ctx is done.
func (s *Subscription) pump(ctx context.Context) {
	defer close(s.events)
	defer s.store.unsubscribe(s.id)
	for {
		select {
		case c, ok := <-s.raw:
			if !ok {
				return
			}
			select {
			case s.events <- decodeChange(c):
			case <-s.done:
				return
			case <-ctx.Done():
				s.setErr(ctx.Err())
				return
			}
		case <-s.done:
			return
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}
	}
}

func decodeChange(c change) control.Event {
	ev := control.Event{Action: c.action, ID: c.id}
	if len(c.payload) == 0 {
		return ev
	}
	if err := json.Unmarshal(c.payload, &ev.Command); err != nil {
		ev.Err = fmt.Errorf("decode control %s: %w", c.id, err)
	}
	return ev
}
