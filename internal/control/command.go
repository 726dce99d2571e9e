// Package control turns the live command subscription into actuator motion
// and zeroes propulsion when commands go stale.
package control

import (
	"context"
	"errors"
	"fmt"
)

// Action is the kind of change a subscription event describes.
type Action string

const (
	Insert Action = "INSERT"
	Update Action = "UPDATE"
	Delete Action = "DELETE"
)

// Command is the operator's requested steering and speed, both in [-1,1].
type Command struct {
	Steer float64 `json:"steer"`
	Speed float64 `json:"speed"`
}

func (c Command) String() string {
	return fmt.Sprintf("steer=%.2f speed=%.2f", c.Steer, c.Speed)
}

// Event is one change delivered by a Subscription. Err is set when the
// payload of this event could not be decoded; the stream itself is still
// healthy.
type Event struct {
	Action  Action
	ID      string
	Command Command
	Err     error
}

// ErrStreamClosed is reported by Subscription.Err when the stream ended
// without a more specific cause.
var ErrStreamClosed = errors.New("control: stream closed")

// Subscription is a live stream of control events. Events is closed when the
// stream ends; Err then reports why.
type Subscription interface {
	Events() <-chan Event
	Err() error
	Close() error
}

// Source opens live control subscriptions.
type Source interface {
	LiveControl(ctx context.Context) (Subscription, error)
}
