// Package store defines the aggregate persistence interface. Each
// subsystem (order, workflow, event) defines its own store interface;
// the composite Store composes them all, so a single backend carries
// every durable piece of an order's lifecycle. Backends: Redis and
// Memory.
package store

import (
	"context"

	"github.com/ovenworks/conveyor/event"
	"github.com/ovenworks/conveyor/order"
	"github.com/ovenworks/conveyor/workflow"
)

// Store is the aggregate persistence interface. A single backend
// implements all subsystem stores, keeping the order record, the
// workflow instance, and the event trail for one order in one place.
type Store interface {
	order.Store
	workflow.Store
	event.Store

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
