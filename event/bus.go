package event

import (
	"context"
	"time"

	"github.com/ovenworks/conveyor/id"
)

// Bus provides high-level publish/acknowledge operations over an event
// Store. The gateway records every externally raised event through it
// before delivering to the orchestrator.
type Bus struct {
	store Store
}

// NewBus creates an event bus backed by the given store.
func NewBus(store Store) *Bus {
	return &Bus{store: store}
}

// Publish creates and persists a new event addressed to an instance.
func (b *Bus) Publish(ctx context.Context, instanceID id.InstanceID, name string, payload []byte) (*Event, error) {
	evt := &Event{
		ID:         id.NewEventID(),
		Name:       name,
		InstanceID: instanceID,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := b.store.PublishEvent(ctx, evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// Ack marks an event as consumed.
func (b *Bus) Ack(ctx context.Context, eventID id.EventID) error {
	return b.store.AckEvent(ctx, eventID)
}

// History returns the events addressed to an instance, oldest first.
func (b *Bus) History(ctx context.Context, instanceID id.InstanceID) ([]*Event, error) {
	return b.store.ListEvents(ctx, instanceID)
}

// Store returns the underlying event store.
func (b *Bus) Store() Store { return b.store }
