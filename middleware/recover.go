package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ovenworks/conveyor/stage"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace, so
// one misbehaving stage cannot take down unrelated order instances.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (result stage.Payload, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("stage invocation panicked",
					slog.String("stage", inv.Stage),
					slog.String("order_id", inv.OrderID),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				result = nil
				retErr = fmt.Errorf("panic in stage %s: %v", inv.Stage, r)
			}
		}()
		return next(ctx)
	}
}
