package event

import (
	"context"

	"github.com/ovenworks/conveyor/id"
)

// Store defines the persistence contract for trigger events.
type Store interface {
	// PublishEvent persists a new event.
	PublishEvent(ctx context.Context, evt *Event) error

	// ListEvents returns all events addressed to an instance, oldest first.
	ListEvents(ctx context.Context, instanceID id.InstanceID) ([]*Event, error)

	// AckEvent marks an event as consumed by its instance.
	// Returns conveyor.ErrEventNotFound for an unknown event ID.
	AckEvent(ctx context.Context, eventID id.EventID) error
}
