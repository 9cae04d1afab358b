// Package store defines the live location source the navigator reads from and
// writes to, plus the helpers shared by its backends.
package store

import (
	"context"
	"sync"

	"citynav/internal/model"
)

// SnapshotFunc receives the full, ordered record set after every change.
type SnapshotFunc func([]model.Location)

// ErrorFunc receives the error that ended a subscription.
type ErrorFunc func(error)

// Subscription is a live feed of snapshots.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe()
}

// Store is a live collection of locations.
//
// Subscribe delivers full snapshots, never deltas. Callbacks run sequentially
// on one goroutine owned by the store, in the order the backend emits them.
// After onError fires the subscription is finished; it is not retried.
type Store interface {
	Subscribe(ctx context.Context, onSnapshot SnapshotFunc, onError ErrorFunc) Subscription
	Add(ctx context.Context, loc model.NewLocation) (string, error)
	Close() error
}

// CancelSubscription is a Subscription backed by a context cancel func.
type CancelSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCancelSubscription derives a cancellable context from ctx and returns it
// with the subscription that cancels it.
func NewCancelSubscription(ctx context.Context) (context.Context, *CancelSubscription) {
	ctx, cancel := context.WithCancel(ctx)
	return ctx, &CancelSubscription{cancel: cancel, done: make(chan struct{})}
}

// Unsubscribe cancels the subscription context.
func (s *CancelSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Finish marks the delivery goroutine as exited.
func (s *CancelSubscription) Finish() {
	close(s.done)
}

// Done is closed once the delivery goroutine has exited.
func (s *CancelSubscription) Done() <-chan struct{} {
	return s.done
}
