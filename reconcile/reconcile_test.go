package reconcile_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ovenworks/conveyor/order"
	"github.com/ovenworks/conveyor/reconcile"
	"github.com/ovenworks/conveyor/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApplyCreatesAndMerges(t *testing.T) {
	s := memory.New()
	r := reconcile.New(s, testLogger())
	ctx := context.Background()

	if err := r.Apply(ctx, order.Record{"order_id": "1", "status": "processing"}); err != nil {
		t.Fatalf("Apply first: %v", err)
	}
	if err := r.Apply(ctx, order.Record{"order_id": "1", "status": "cooking", "oven": "2"}); err != nil {
		t.Fatalf("Apply second: %v", err)
	}

	rec, err := s.GetOrder(ctx, "1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if rec.Status() != "cooking" {
		t.Errorf("status = %q, want cooking", rec.Status())
	}
	if rec["oven"] != "2" {
		t.Errorf("oven = %v, want 2", rec["oven"])
	}
}

func TestApplyRejectsEventWithoutOrderID(t *testing.T) {
	r := reconcile.New(memory.New(), testLogger())

	if err := r.Apply(context.Background(), order.Record{"status": "cooking"}); err == nil {
		t.Fatal("expected error for event without order_id")
	}
}

func TestApplyIgnoresLateEventAfterTerminal(t *testing.T) {
	s := memory.New()
	r := reconcile.New(s, testLogger())
	ctx := context.Background()

	if err := r.Apply(ctx, order.Record{"order_id": "1", "status": "delivered"}); err != nil {
		t.Fatalf("Apply terminal: %v", err)
	}
	if err := r.Apply(ctx, order.Record{"order_id": "1", "status": "cooking_baking"}); err != nil {
		t.Fatalf("Apply late: %v", err)
	}

	rec, _ := s.GetOrder(ctx, "1")
	if rec.Status() != order.StatusDelivered {
		t.Errorf("status = %q, late event resurrected a delivered order", rec.Status())
	}
}

func TestApplyConcurrentEventsLoseNoFields(t *testing.T) {
	s := memory.New()
	r := reconcile.New(s, testLogger())
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		field := string(rune('a' + i%26))
		go func() {
			defer wg.Done()
			if err := r.Apply(ctx, order.Record{"order_id": "1", field: field}); err != nil {
				t.Errorf("Apply: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := s.GetOrder(ctx, "1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	for i := 0; i < 26 && i < n; i++ {
		field := string(rune('a' + i))
		if rec[field] != field {
			t.Errorf("field %q lost in concurrent merge", field)
		}
	}
}

func TestRunConsumesUntilSourceCloses(t *testing.T) {
	s := memory.New()
	r := reconcile.New(s, testLogger())

	src := reconcile.NewChannelSource(4)
	src.Send(order.Record{"order_id": "1", "status": "processing"})
	src.Send(order.Record{"order_id": "2", "status": "cooking"})
	// A poison event must not stop the ones behind it.
	src.Send(order.Record{"status": "orphan"})
	src.Send(order.Record{"order_id": "1", "status": "delivered"})
	src.Close()

	if err := r.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec1, err := s.GetOrder(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetOrder 1: %v", err)
	}
	if rec1.Status() != order.StatusDelivered {
		t.Errorf("order 1 status = %q, want delivered", rec1.Status())
	}
	rec2, err := s.GetOrder(context.Background(), "2")
	if err != nil {
		t.Fatalf("GetOrder 2: %v", err)
	}
	if rec2.Status() != "cooking" {
		t.Errorf("order 2 status = %q, want cooking", rec2.Status())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	r := reconcile.New(memory.New(), testLogger())
	src := reconcile.NewChannelSource(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, src) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
}
