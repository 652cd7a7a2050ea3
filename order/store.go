package order

import "context"

// Store is the persistence contract for order records. It is the
// authoritative source for "current known status" queries, independent of
// whether the workflow instance for the order is still running.
//
// Implementations must serialize nothing themselves beyond single-call
// atomicity: callers performing read-modify-write cycles (the reconciler's
// merge) hold a per-key lock around the Get/Put pair.
type Store interface {
	// GetOrder retrieves the record for an order.
	// Returns conveyor.ErrOrderNotFound if no record exists.
	GetOrder(ctx context.Context, orderID string) (Record, error)

	// PutOrder writes the record for an order, replacing any previous one.
	PutOrder(ctx context.Context, orderID string, rec Record) error

	// DeleteOrder removes the record for an order. Deleting an absent
	// key is not an error.
	DeleteOrder(ctx context.Context, orderID string) error
}
