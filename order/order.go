// Package order defines the durable order record and its state store
// interface. The record is the read path for order-status queries: a
// projection built from asynchronously published status events, eventually
// consistent with (but independent of) the workflow orchestrator's own
// view of the same order.
package order

// Well-known record fields. Stage services may attach arbitrary extra
// fields; these are the ones conveyor itself reads.
const (
	FieldOrderID = "order_id"
	FieldStatus  = "status"
	FieldError   = "error"
)

// Status is the order's visible status. Stage services publish free-form
// sub-step statuses (e.g. "cooking_baking", "delivery_on_the_way"); only
// the terminal values are distinguished by conveyor itself.
type Status string

// Terminal statuses. A record that reached one of these never moves back
// to an in-progress status.
const (
	StatusCompleted Status = "completed"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s marks the end of an order's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Record is the durable order record: a flat JSON object holding at least
// the order ID and status, plus whatever fields the stage services supplied.
type Record map[string]any

// OrderID returns the record's order ID, or "" if absent.
func (r Record) OrderID() string {
	s, _ := r[FieldOrderID].(string)
	return s
}

// Status returns the record's current status, or "" if absent.
func (r Record) Status() Status {
	s, _ := r[FieldStatus].(string)
	return Status(s)
}

// Error returns the recorded failure text, or "" if the order has not failed.
func (r Record) Error() string {
	s, _ := r[FieldError].(string)
	return s
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Merge returns a new record with every field of incoming overwriting the
// corresponding field of current. The merge is idempotent and, for events
// touching disjoint fields, commutative.
//
// One exception keeps the record's lifecycle monotonic: once current holds
// a terminal status, a non-terminal incoming status is ignored. Late or
// re-delivered in-progress events must not resurrect a finished order.
func Merge(current, incoming Record) Record {
	merged := current.Clone()
	if merged == nil {
		merged = make(Record, len(incoming))
	}
	for k, v := range incoming {
		if k == FieldStatus && merged.Status().Terminal() {
			s, _ := v.(string)
			if !Status(s).Terminal() {
				continue
			}
		}
		merged[k] = v
	}
	return merged
}
