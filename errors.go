package conveyor

import "errors"

var (
	// Orchestration errors.
	ErrDuplicateInstance = errors.New("conveyor: workflow instance already exists for order")
	ErrInstanceNotFound  = errors.New("conveyor: workflow instance not found")
	ErrNoMatchingWaiter  = errors.New("conveyor: no instance waiting for event")
	ErrTerminal          = errors.New("conveyor: workflow instance is terminal")

	// State store errors.
	ErrOrderNotFound = errors.New("conveyor: order not found")

	// Event errors.
	ErrEventNotFound = errors.New("conveyor: event not found")
)
