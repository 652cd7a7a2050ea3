package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/event"
	"github.com/ovenworks/conveyor/id"
	"github.com/ovenworks/conveyor/order"
	"github.com/ovenworks/conveyor/stage"
	"github.com/ovenworks/conveyor/workflow"
)

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Order Store tests
// ──────────────────────────────────────────────────

func TestOrderCRUD(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if _, err := s.GetOrder(ctx, "1"); !errors.Is(err, conveyor.ErrOrderNotFound) {
		t.Fatalf("GetOrder missing = %v, want ErrOrderNotFound", err)
	}

	rec := order.Record{"order_id": "1", "status": "cooking"}
	if err := s.PutOrder(ctx, "1", rec); err != nil {
		t.Fatalf("PutOrder: %v", err)
	}

	got, err := s.GetOrder(ctx, "1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status() != "cooking" {
		t.Errorf("status = %q, want cooking", got.Status())
	}

	// Stored record is isolated from later caller mutations.
	rec["status"] = "mutated"
	got, _ = s.GetOrder(ctx, "1")
	if got.Status() != "cooking" {
		t.Error("store shares record storage with the caller")
	}

	if err := s.DeleteOrder(ctx, "1"); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if _, err := s.GetOrder(ctx, "1"); !errors.Is(err, conveyor.ErrOrderNotFound) {
		t.Fatalf("GetOrder after delete = %v, want ErrOrderNotFound", err)
	}
	// Idempotent delete.
	if err := s.DeleteOrder(ctx, "1"); err != nil {
		t.Fatalf("DeleteOrder absent: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Workflow Store tests
// ──────────────────────────────────────────────────

func newInstance(orderID string, state workflow.State) *workflow.Instance {
	now := time.Now().UTC()
	return &workflow.Instance{
		ID:        id.ForOrder(orderID),
		OrderID:   orderID,
		State:     state,
		Input:     stage.Payload{"order_id": orderID},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInstanceCreateAndGet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	in := newInstance("1", workflow.StateCreated)
	if err := s.CreateInstance(ctx, in); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if err := s.CreateInstance(ctx, in); !errors.Is(err, conveyor.ErrDuplicateInstance) {
		t.Fatalf("duplicate create = %v, want ErrDuplicateInstance", err)
	}

	got, err := s.GetInstance(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if got.OrderID != "1" || got.State != workflow.StateCreated {
		t.Errorf("got %q/%q, want 1/created", got.OrderID, got.State)
	}

	if _, err := s.GetInstance(ctx, id.ForOrder("ghost")); !errors.Is(err, conveyor.ErrInstanceNotFound) {
		t.Fatalf("GetInstance missing = %v, want ErrInstanceNotFound", err)
	}
}

func TestInstanceUpdate(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	if err := s.UpdateInstance(ctx, newInstance("1", workflow.StateCreated)); !errors.Is(err, conveyor.ErrInstanceNotFound) {
		t.Fatalf("update missing = %v, want ErrInstanceNotFound", err)
	}

	in := newInstance("1", workflow.StateCreated)
	if err := s.CreateInstance(ctx, in); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	in.State = workflow.StateAwaitingValidation
	in.WaitingFor = workflow.EventValidationComplete
	if err := s.UpdateInstance(ctx, in); err != nil {
		t.Fatalf("UpdateInstance: %v", err)
	}

	got, _ := s.GetInstance(ctx, in.ID)
	if got.State != workflow.StateAwaitingValidation {
		t.Errorf("state = %q, want awaiting_validation", got.State)
	}
	if got.WaitingFor != workflow.EventValidationComplete {
		t.Errorf("waiting_for = %q, want %q", got.WaitingFor, workflow.EventValidationComplete)
	}
}

func TestListInstances(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	a := newInstance("a", workflow.StateDelivered)
	a.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	b := newInstance("b", workflow.StateCooking)
	b.CreatedAt = time.Now().UTC().Add(-time.Hour)
	c := newInstance("c", workflow.StateCooking)

	for _, in := range []*workflow.Instance{c, a, b} {
		if err := s.CreateInstance(ctx, in); err != nil {
			t.Fatalf("CreateInstance %s: %v", in.OrderID, err)
		}
	}

	all, err := s.ListInstances(ctx, workflow.ListOpts{})
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].OrderID != "a" || all[1].OrderID != "b" || all[2].OrderID != "c" {
		t.Errorf("order = %s,%s,%s, want oldest first a,b,c", all[0].OrderID, all[1].OrderID, all[2].OrderID)
	}

	cooking, err := s.ListInstances(ctx, workflow.ListOpts{State: workflow.StateCooking})
	if err != nil {
		t.Fatalf("ListInstances filtered: %v", err)
	}
	if len(cooking) != 2 {
		t.Errorf("filtered len = %d, want 2", len(cooking))
	}
}

// ──────────────────────────────────────────────────
// Event Store tests
// ──────────────────────────────────────────────────

func TestEventPublishListAck(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	instID := id.ForOrder("1")

	first := &event.Event{
		ID:         id.NewEventID(),
		Name:       "ValidationComplete",
		InstanceID: instID,
		Payload:    []byte(`{"approved":true}`),
		CreatedAt:  time.Now().UTC(),
	}
	second := &event.Event{
		ID:         id.NewEventID(),
		Name:       "ValidationComplete",
		InstanceID: instID,
		CreatedAt:  time.Now().UTC(),
	}
	other := &event.Event{
		ID:         id.NewEventID(),
		Name:       "ValidationComplete",
		InstanceID: id.ForOrder("2"),
		CreatedAt:  time.Now().UTC(),
	}

	for _, evt := range []*event.Event{first, second, other} {
		if err := s.PublishEvent(ctx, evt); err != nil {
			t.Fatalf("PublishEvent: %v", err)
		}
	}

	events, err := s.ListEvents(ctx, instID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].ID.String() != first.ID.String() {
		t.Error("events not in publish order")
	}
	if string(events[0].Payload) != `{"approved":true}` {
		t.Errorf("payload = %q", events[0].Payload)
	}

	if err := s.AckEvent(ctx, first.ID); err != nil {
		t.Fatalf("AckEvent: %v", err)
	}
	events, _ = s.ListEvents(ctx, instID)
	if !events[0].Acked {
		t.Error("acked flag not persisted")
	}
	if events[1].Acked {
		t.Error("ack leaked onto another event")
	}

	if err := s.AckEvent(ctx, id.NewEventID()); !errors.Is(err, conveyor.ErrEventNotFound) {
		t.Fatalf("AckEvent unknown = %v, want ErrEventNotFound", err)
	}
}
