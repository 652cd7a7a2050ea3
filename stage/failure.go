package stage

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies how a stage invocation failed at the transport
// level. A stage that answered but with a non-confirming business status is
// not a Failure; that check belongs to the orchestrator.
type FailureKind string

const (
	// FailureUnreachable means the stage endpoint could not be reached.
	FailureUnreachable FailureKind = "unreachable"
	// FailureTimeout means the call did not complete within its deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureNonOKResponse means the stage answered with a non-2xx status
	// or an unparseable body.
	FailureNonOKResponse FailureKind = "non_ok_response"
)

// Failure is the error type for transport-level stage invocation problems.
type Failure struct {
	Stage string
	Kind  FailureKind
	Err   error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", f.Stage, f.Kind, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// classify wraps a transport error from an HTTP round trip in a Failure
// with the appropriate kind.
func classify(stageName string, err error) *Failure {
	kind := FailureUnreachable
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = FailureTimeout
	}
	return &Failure{Stage: stageName, Kind: kind, Err: err}
}
