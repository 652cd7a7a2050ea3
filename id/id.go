// Package id defines identity types for conveyor entities.
//
// Workflow instance IDs are a deterministic function of the order ID in the
// format "pizza-order-{order_id}", so that every component addressing an
// order reaches the same instance and repeated starts are detectable.
// Event IDs are TypeID-based (K-sortable, UUIDv7-backed, URL-safe) in the
// format "evt_suffix".
package id

import (
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// instancePrefix is prepended to an order ID to form the instance ID.
const instancePrefix = "pizza-order-"

// InstanceID identifies a workflow instance. One instance exists per order;
// the mapping from order ID to instance ID is deterministic and reversible.
type InstanceID string

// ForOrder returns the instance ID for the given order ID.
func ForOrder(orderID string) InstanceID {
	return InstanceID(instancePrefix + orderID)
}

// ParseInstanceID validates a raw instance ID string.
func ParseInstanceID(s string) (InstanceID, error) {
	if !strings.HasPrefix(s, instancePrefix) || len(s) == len(instancePrefix) {
		return "", fmt.Errorf("id: parse instance id %q: want %q followed by an order id", s, instancePrefix)
	}
	return InstanceID(s), nil
}

// OrderID returns the order ID this instance ID was derived from.
func (i InstanceID) OrderID() string {
	return strings.TrimPrefix(string(i), instancePrefix)
}

// String returns the raw instance ID string.
func (i InstanceID) String() string { return string(i) }

// eventPrefix is the TypeID prefix for event IDs.
const eventPrefix = "evt"

// EventID is a globally unique identifier for a trigger event.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type EventID struct {
	inner typeid.TypeID
	valid bool
}

// NilEvent is the zero-value EventID.
var NilEvent EventID

// NewEventID generates a new globally unique event ID.
func NewEventID() EventID {
	tid, err := typeid.Generate(eventPrefix)
	if err != nil {
		panic(fmt.Sprintf("id: generate event id: %v", err))
	}
	return EventID{inner: tid, valid: true}
}

// ParseEventID parses an event ID string (e.g. "evt_01h2xcejqtf2nbrexx3vqjhp41").
func ParseEventID(s string) (EventID, error) {
	if s == "" {
		return NilEvent, fmt.Errorf("id: parse event id: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return NilEvent, fmt.Errorf("id: parse event id %q: %w", s, err)
	}
	if tid.Prefix() != eventPrefix {
		return NilEvent, fmt.Errorf("id: parse event id %q: expected prefix %q", s, eventPrefix)
	}
	return EventID{inner: tid, valid: true}, nil
}

// String returns the full TypeID string, or "" for the nil ID.
func (e EventID) String() string {
	if !e.valid {
		return ""
	}
	return e.inner.String()
}

// IsNil reports whether this event ID is the zero value.
func (e EventID) IsNil() bool { return !e.valid }

// MarshalText implements encoding.TextMarshaler.
func (e EventID) MarshalText() ([]byte, error) {
	if !e.valid {
		return []byte{}, nil
	}
	return []byte(e.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EventID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*e = NilEvent
		return nil
	}
	parsed, err := ParseEventID(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
