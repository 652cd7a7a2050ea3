// Package gateway is the entry point for externally raised workflow
// triggers and administrative commands. It routes each request to the
// matching workflow instance by order ID and keeps an audit trail of
// every delivered event.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/event"
	"github.com/ovenworks/conveyor/id"
	"github.com/ovenworks/conveyor/workflow"
)

// Workflow is the orchestrator surface the gateway routes to.
type Workflow interface {
	RaiseEvent(ctx context.Context, orderID, eventName string, payload []byte) error
	Pause(ctx context.Context, orderID string) error
	Resume(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, orderID string) error
	Status(ctx context.Context, orderID string) (*workflow.Instance, error)
}

// Gateway delivers external events and admin commands to workflow
// instances. A nil bus disables the audit trail.
type Gateway struct {
	wf     Workflow
	bus    *event.Bus
	logger *slog.Logger
}

// New creates a gateway in front of the given workflow surface.
func New(wf Workflow, bus *event.Bus, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{wf: wf, bus: bus, logger: logger}
}

// RaiseEvent records the trigger in the audit trail and delivers it to
// the instance suspended on it. The event stays unacknowledged when no
// instance was waiting, so redeliveries of an already-consumed trigger
// are visible in the trail: recorded but never acked.
func (g *Gateway) RaiseEvent(ctx context.Context, orderID, eventName string, payload []byte) error {
	instID := id.ForOrder(orderID)

	var audited *event.Event
	if g.bus != nil {
		evt, err := g.bus.Publish(ctx, instID, eventName, payload)
		if err != nil {
			// The trail is bookkeeping; delivery is the contract.
			g.logger.Error("failed to record event in audit trail",
				slog.String("order_id", orderID),
				slog.String("event", eventName),
				slog.String("error", err.Error()),
			)
		} else {
			audited = evt
		}
	}

	if err := g.wf.RaiseEvent(ctx, orderID, eventName, payload); err != nil {
		if errors.Is(err, conveyor.ErrNoMatchingWaiter) {
			g.logger.Warn("event had no matching waiter",
				slog.String("order_id", orderID),
				slog.String("event", eventName),
			)
		}
		return err
	}

	if audited != nil {
		if err := g.bus.Ack(ctx, audited.ID); err != nil {
			g.logger.Error("failed to ack delivered event",
				slog.String("event_id", audited.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	g.logger.Info("event delivered",
		slog.String("order_id", orderID),
		slog.String("event", eventName),
	)
	return nil
}

// Validate delivers the ValidationComplete decision for an order.
func (g *Gateway) Validate(ctx context.Context, orderID string, approved bool) error {
	payload, err := json.Marshal(struct {
		Approved bool `json:"approved"`
	}{Approved: approved})
	if err != nil {
		return fmt.Errorf("gateway: encode validation payload: %w", err)
	}
	return g.RaiseEvent(ctx, orderID, workflow.EventValidationComplete, payload)
}

// Pause halts the order's workflow instance in place.
func (g *Gateway) Pause(ctx context.Context, orderID string) error {
	return g.wf.Pause(ctx, orderID)
}

// Resume continues a paused workflow instance.
func (g *Gateway) Resume(ctx context.Context, orderID string) error {
	return g.wf.Resume(ctx, orderID)
}

// Cancel terminates the order's workflow instance.
func (g *Gateway) Cancel(ctx context.Context, orderID string) error {
	return g.wf.Cancel(ctx, orderID)
}

// Status returns the current instance snapshot for an order.
func (g *Gateway) Status(ctx context.Context, orderID string) (*workflow.Instance, error) {
	return g.wf.Status(ctx, orderID)
}

// Trail returns the audit history of events delivered to an order, or
// nil when the gateway runs without a bus.
func (g *Gateway) Trail(ctx context.Context, orderID string) ([]*event.Event, error) {
	if g.bus == nil {
		return nil, nil
	}
	return g.bus.History(ctx, id.ForOrder(orderID))
}
