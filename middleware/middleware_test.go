package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ovenworks/conveyor/backoff"
	"github.com/ovenworks/conveyor/middleware"
	"github.com/ovenworks/conveyor/stage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInvocation() *middleware.Invocation {
	return &middleware.Invocation{Stage: "cook", OrderID: "1"}
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mk := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *middleware.Invocation, next middleware.Handler) (stage.Payload, error) {
			trace = append(trace, name+"-in")
			result, err := next(ctx)
			trace = append(trace, name+"-out")
			return result, err
		}
	}

	chain := middleware.Chain(mk("outer"), mk("inner"))
	_, err := chain(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		trace = append(trace, "handler")
		return stage.Payload{"status": "cooked"}, nil
	})
	if err != nil {
		t.Fatalf("chain: %v", err)
	}

	want := []string{"outer-in", "inner-in", "handler", "inner-out", "outer-out"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Errorf("trace[%d] = %q, want %q", i, trace[i], want[i])
		}
	}
}

func TestChainEmpty(t *testing.T) {
	chain := middleware.Chain()
	result, err := chain(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		return stage.Payload{"status": "ok"}, nil
	})
	if err != nil {
		t.Fatalf("empty chain: %v", err)
	}
	if result.Status() != "ok" {
		t.Errorf("status = %q, want ok", result.Status())
	}
}

func TestRetryRetriesTransportFailures(t *testing.T) {
	mw := middleware.Retry(middleware.RetryPolicy{
		MaxAttempts: 3,
		Backoff:     backoff.NewConstant(time.Millisecond),
	}, testLogger())

	var calls int
	result, err := mw(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		calls++
		if calls < 3 {
			return nil, &stage.Failure{Stage: "cook", Kind: stage.FailureUnreachable, Err: errors.New("refused")}
		}
		return stage.Payload{"status": "cooked"}, nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if result.Status() != "cooked" {
		t.Errorf("status = %q, want cooked", result.Status())
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	mw := middleware.Retry(middleware.RetryPolicy{
		MaxAttempts: 2,
		Backoff:     backoff.NewConstant(time.Millisecond),
	}, testLogger())

	var calls int
	_, err := mw(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		calls++
		return nil, &stage.Failure{Stage: "cook", Kind: stage.FailureTimeout, Err: errors.New("deadline")}
	})

	var failure *stage.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %v, want *stage.Failure", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryDoesNotRetryBusinessResults(t *testing.T) {
	mw := middleware.Retry(middleware.RetryPolicy{
		MaxAttempts: 5,
		Backoff:     backoff.NewConstant(time.Millisecond),
	}, testLogger())

	var calls int
	result, err := mw(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		calls++
		return stage.Payload{"status": "failed", "error": "no flour"}, nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 — business results must not be retried", calls)
	}
	if result.ErrorText() != "no flour" {
		t.Errorf("error text = %q, want no flour", result.ErrorText())
	}
}

func TestRetryDoesNotRetryPlainErrors(t *testing.T) {
	mw := middleware.Retry(middleware.RetryPolicy{
		MaxAttempts: 5,
		Backoff:     backoff.NewConstant(time.Millisecond),
	}, testLogger())

	var calls int
	_, err := mw(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		calls++
		return nil, errors.New("not a transport failure")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	mw := middleware.Retry(middleware.RetryPolicy{
		MaxAttempts: 10,
		Backoff:     backoff.NewConstant(time.Hour),
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	_, err := mw(ctx, testInvocation(), func(context.Context) (stage.Payload, error) {
		return nil, &stage.Failure{Stage: "cook", Kind: stage.FailureUnreachable, Err: errors.New("refused")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestRecoverConvertsPanics(t *testing.T) {
	mw := middleware.Recover(testLogger())

	result, err := mw(context.Background(), testInvocation(), func(context.Context) (stage.Payload, error) {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}
}

func TestTimeoutCancelsContext(t *testing.T) {
	mw := middleware.Timeout(10 * time.Millisecond)

	_, err := mw(context.Background(), testInvocation(), func(ctx context.Context) (stage.Payload, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return stage.Payload{}, nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
}
