package workflow

import (
	"context"

	"github.com/ovenworks/conveyor/id"
)

// ListOpts filters ListInstances results.
type ListOpts struct {
	// State restricts results to instances in the given state.
	State State
}

// Store is the persistence contract for workflow instances. The
// orchestrator persists through it at every transition boundary, so a
// restart can pick up every non-terminal instance exactly where it was.
type Store interface {
	// CreateInstance persists a new instance.
	// Returns conveyor.ErrDuplicateInstance if one already exists for the ID.
	CreateInstance(ctx context.Context, in *Instance) error

	// GetInstance retrieves an instance by ID.
	// Returns conveyor.ErrInstanceNotFound if absent.
	GetInstance(ctx context.Context, instanceID id.InstanceID) (*Instance, error)

	// UpdateInstance persists changes to an existing instance.
	// Returns conveyor.ErrInstanceNotFound if absent.
	UpdateInstance(ctx context.Context, in *Instance) error

	// ListInstances returns instances matching the given options,
	// oldest first.
	ListInstances(ctx context.Context, opts ListOpts) ([]*Instance, error)
}
