package order

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusPreparing  Status = "preparing"
	StatusReady      Status = "ready"
	StatusInDelivery Status = "in-delivery"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("order: invalid status transition")

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0 || s == StatusCancelled
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// rank orders the forward lifecycle. Cancelled sits outside it.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPaid:
		return 1
	case StatusPreparing:
		return 2
	case StatusReady:
		return 3
	case StatusInDelivery:
		return 4
	case StatusDelivered:
		return 5
	}
	return -1
}

// CanTransition reports whether s may move to next. Orders only move forward
// along pending → paid → preparing → ready → in-delivery → delivered, and any
// non-terminal order may be cancelled.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return next.rank() > s.rank()
}

// Transition validates s → next.
func Transition(s, next Status) error {
	if !s.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}
