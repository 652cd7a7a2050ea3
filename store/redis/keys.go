package redis

// Redis key naming conventions for conveyor data.
// Internal keys are prefixed with "conveyor:" to avoid collisions.

const keyPrefix = "conveyor:"

// ── Order keys ──

// orderKey returns the key for an order record: order_{order_id}.
// Deliberately unprefixed: this is the well-known key contract external
// status readers depend on.
func orderKey(orderID string) string { return "order_" + orderID }

// ── Instance keys ──

// instanceKey returns the key for a workflow instance entity:
// conveyor:instance:{id}
func instanceKey(id string) string { return keyPrefix + "instance:" + id }

// instanceIDsKey is the Set tracking all instance IDs for enumeration.
const instanceIDsKey = keyPrefix + "instance_ids"

// ── Event keys ──

// eventKey returns the key for an event entity: conveyor:event:{id}
func eventKey(id string) string { return keyPrefix + "event:" + id }

// eventIndexKey returns the List preserving publish order of events
// addressed to an instance: conveyor:event_idx:{instance_id}
func eventIndexKey(instanceID string) string {
	return keyPrefix + "event_idx:" + instanceID
}
