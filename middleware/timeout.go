package middleware

import (
	"context"
	"time"

	"github.com/ovenworks/conveyor/stage"
)

// Timeout returns middleware that enforces a per-invocation deadline.
// When the deadline is exceeded the context is cancelled and the stage's
// transport layer reports a timeout Failure.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *Invocation, next Handler) (stage.Payload, error) {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
