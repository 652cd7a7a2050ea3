package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ovenworks/conveyor/backoff"
	"github.com/ovenworks/conveyor/stage"
)

// RetryPolicy controls how transport-level stage failures are retried.
// The zero value means no retries: a single failed call fails the order,
// which is the default orchestration behavior. Retries are an explicit,
// per-deployment decision.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 2 disable retrying.
	MaxAttempts int

	// Backoff computes the delay before each retry attempt.
	// Nil selects backoff.DefaultStrategy.
	Backoff backoff.Strategy
}

// Retry returns middleware that retries transport-level failures
// (unreachable endpoint, timeout, non-2xx answer) according to the policy.
// A stage that answered with a non-confirming business status is a result,
// not a *stage.Failure, and is never retried here.
func Retry(policy RetryPolicy, logger *slog.Logger) Middleware {
	strategy := policy.Backoff
	if strategy == nil {
		strategy = backoff.DefaultStrategy()
	}

	return func(ctx context.Context, inv *Invocation, next Handler) (stage.Payload, error) {
		var result stage.Payload
		var err error

		attempts := policy.MaxAttempts
		if attempts < 1 {
			attempts = 1
		}

		for attempt := 1; ; attempt++ {
			result, err = next(ctx)

			var failure *stage.Failure
			if err == nil || !errors.As(err, &failure) || attempt >= attempts {
				return result, err
			}

			delay := strategy.Delay(attempt)
			logger.Warn("retrying stage invocation",
				slog.String("stage", inv.Stage),
				slog.String("order_id", inv.OrderID),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
}
