// Package workflow owns the per-order orchestration state machine. It
// sequences activity calls through the stage registry, suspends on the
// external validation decision, applies the failure policy, and produces
// the terminal order outcome.
//
// The state machine is explicit and durable: every transition is persisted
// before and after its side effect, and a suspension is a stored
// pending-event marker, not a parked goroutine. An instance can therefore
// resume in a different process after arbitrary wall-clock delay.
package workflow

// State is the orchestration state of a workflow instance.
type State string

// Orchestration states, in stage order. Validation rejection routes to
// StateFailed; StateRejected is the transient position between the negative
// decision and the recorded failure.
const (
	StateCreated            State = "created"
	StateOrdering           State = "ordering"
	StateOrdered            State = "ordered"
	StateCooking            State = "cooking"
	StateCooked             State = "cooked"
	StateAwaitingValidation State = "awaiting_validation"
	StateValidated          State = "validated"
	StateRejected           State = "rejected"
	StateDelivering         State = "delivering"
	StateDelivered          State = "delivered"
	StateFailed             State = "failed"
)

// Terminal reports whether s is a terminal orchestration state.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateFailed
}

// EventValidationComplete is the event name an instance registers interest
// in while suspended awaiting the human validation decision.
const EventValidationComplete = "ValidationComplete"

// phase describes one activity-backed transition: from a resting state,
// the orchestrator records the active state, invokes the stage, and on a
// result whose status matches confirm advances to the done state. Any
// other outcome fails the whole order with the label as error prefix.
type phase struct {
	active  State
	done    State
	stage   string
	confirm string
	label   string
}

// phases maps each resting state to the activity that moves the order
// forward. StateCooked is absent on purpose: it suspends instead of
// invoking (see Orchestrator.advance).
var phases = map[State]phase{
	StateCreated:   {active: StateOrdering, done: StateOrdered, stage: "order", confirm: "confirmed", label: "order failed"},
	StateOrdered:   {active: StateCooking, done: StateCooked, stage: "cook", confirm: "cooked", label: "cooking failed"},
	StateValidated: {active: StateDelivering, done: StateDelivered, stage: "deliver", confirm: "delivered", label: "delivery failed"},
}
