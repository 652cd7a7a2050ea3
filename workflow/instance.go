package workflow

import (
	"time"

	"github.com/ovenworks/conveyor/id"
	"github.com/ovenworks/conveyor/stage"
)

// StageResult records one completed step of an instance's history.
type StageResult struct {
	Stage       string        `json:"stage"`
	Status      string        `json:"status"`
	Result      stage.Payload `json:"result,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Instance is the durable per-order orchestration record. It is owned
// exclusively by the orchestrator; external components mutate it only
// through the gateway's event-delivery and administrative contracts.
type Instance struct {
	// ID is the deterministic instance ID derived from the order ID.
	ID id.InstanceID `json:"id"`
	// OrderID is the externally supplied order identifier.
	OrderID string `json:"order_id"`
	// State is the current orchestration state.
	State State `json:"state"`
	// Paused halts forward progress without losing position.
	Paused bool `json:"paused,omitempty"`
	// WaitingFor is the event name the instance is suspended on, or "".
	WaitingFor string `json:"waiting_for,omitempty"`
	// Epoch increments on every forced interrupt (cancel). A stage result
	// that comes back under an older epoch is discarded.
	Epoch int64 `json:"epoch"`
	// Input is the client-supplied order payload.
	Input stage.Payload `json:"input,omitempty"`
	// History holds completed stage results, oldest first.
	History []StageResult `json:"history,omitempty"`
	// Output is the terminal record, present once the instance completes.
	Output stage.Payload `json:"output,omitempty"`
	// Error is the failure text, present only in StateFailed.
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the instance reached a terminal state.
func (in *Instance) Terminal() bool { return in.State.Terminal() }

// Suspended reports whether the instance is parked awaiting an event.
func (in *Instance) Suspended() bool { return in.WaitingFor != "" }

// nextInput is the payload for the next activity call: the previous
// stage's result, or the client input when no stage has completed yet.
// Each stage receives its predecessor's full result payload.
func (in *Instance) nextInput() stage.Payload {
	for i := len(in.History) - 1; i >= 0; i-- {
		if in.History[i].Result != nil {
			return in.History[i].Result.Clone()
		}
	}
	return in.Input.Clone()
}

// Clone returns a copy of the instance safe to hand to callers while the
// orchestrator keeps mutating its own record.
func (in *Instance) Clone() *Instance {
	cp := *in
	cp.Input = in.Input.Clone()
	cp.Output = in.Output.Clone()
	if in.History != nil {
		cp.History = make([]StageResult, len(in.History))
		copy(cp.History, in.History)
	}
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
