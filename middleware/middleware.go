// Package middleware provides composable middleware for stage invocation.
// Middleware wraps activity calls synchronously and can modify execution
// (recover from panics, log, add tracing and metrics, retry transport
// failures, enforce deadlines).
package middleware

import (
	"context"

	"github.com/ovenworks/conveyor/stage"
)

// Invocation describes one activity call as seen by middleware.
type Invocation struct {
	// Stage is the stage name being invoked.
	Stage string
	// OrderID is the order the call belongs to.
	OrderID string
}

// Handler is the terminal function that performs the stage call.
type Handler func(ctx context.Context) (stage.Payload, error)

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the invocation being executed, and the next handler to
// call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, inv *Invocation, next Handler) (stage.Payload, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, retry) executes as:
//
//	logging → recover → retry → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (stage.Payload, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (stage.Payload, error) {
				return mw(ctx, inv, prev)
			}
		}
		return h(ctx)
	}
}
