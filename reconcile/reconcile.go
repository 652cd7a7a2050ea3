// Package reconcile folds asynchronously published order-status events
// into the order store. The reconciler is the only writer of order
// records on the event path; it merges rather than replaces, so events
// arriving out of order or more than once converge on the same record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/keylock"
	"github.com/ovenworks/conveyor/order"
)

// Reconciler applies order-status events to the order store.
type Reconciler struct {
	store  order.Store
	logger *slog.Logger
	locks  *keylock.Mutex
}

// New creates a reconciler writing through the given order store.
func New(store order.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:  store,
		logger: logger,
		locks:  keylock.New(),
	}
}

// Apply merges one status event into the stored record for its order,
// creating the record if none exists. The read-merge-write cycle is
// serialized per order, so concurrent events for the same order never
// lose fields to each other.
func (r *Reconciler) Apply(ctx context.Context, evt order.Record) error {
	orderID := evt.OrderID()
	if orderID == "" {
		return fmt.Errorf("reconcile: status event missing %s", order.FieldOrderID)
	}

	r.locks.Lock(orderID)
	defer r.locks.Unlock(orderID)

	current, err := r.store.GetOrder(ctx, orderID)
	if err != nil && !errors.Is(err, conveyor.ErrOrderNotFound) {
		return fmt.Errorf("reconcile: load order %q: %w", orderID, err)
	}

	merged := order.Merge(current, evt)
	if err := r.store.PutOrder(ctx, orderID, merged); err != nil {
		return fmt.Errorf("reconcile: store order %q: %w", orderID, err)
	}

	r.logger.Debug("status event applied",
		slog.String("order_id", orderID),
		slog.String("status", string(merged.Status())),
	)
	return nil
}

// Run consumes events from the source until the context is cancelled or
// the source is exhausted. Events that fail to apply are logged and
// dropped; a poison event must not wedge the stream behind it.
func (r *Reconciler) Run(ctx context.Context, src Source) error {
	for {
		evt, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("reconcile: source: %w", err)
		}
		if err := r.Apply(ctx, evt); err != nil {
			r.logger.Error("dropping status event",
				slog.String("order_id", evt.OrderID()),
				slog.String("error", err.Error()),
			)
		}
	}
}
