package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/ovenworks/conveyor/stage"
)

// Logging returns middleware that logs invocation start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (stage.Payload, error) {
		logger.Info("stage invocation started",
			slog.String("stage", inv.Stage),
			slog.String("order_id", inv.OrderID),
		)

		start := time.Now()
		result, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("stage invocation failed",
				slog.String("stage", inv.Stage),
				slog.String("order_id", inv.OrderID),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("stage invocation completed",
				slog.String("stage", inv.Stage),
				slog.String("order_id", inv.OrderID),
				slog.String("status", result.Status()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return result, err
	}
}
