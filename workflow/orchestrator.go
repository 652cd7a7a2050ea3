package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/id"
	"github.com/ovenworks/conveyor/keylock"
	"github.com/ovenworks/conveyor/middleware"
	"github.com/ovenworks/conveyor/stage"
)

// Orchestrator drives one independent sequential state machine per order.
// Cross-order concurrency is unbounded; within one order, transitions are
// serialized by a per-key lock and at most one activity call is ever
// outstanding.
type Orchestrator struct {
	stages  *stage.Registry
	store   Store
	emitter Emitter
	logger  *slog.Logger

	locks *keylock.Mutex
	mw    middleware.Middleware

	invokeTimeout time.Duration

	// running tracks instances currently driven by this process, so an
	// administrative resume never races a loop that is already executing.
	mu      sync.Mutex
	running map[string]bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMiddleware installs invocation middleware around every stage call.
// Middleware are applied in order: the first is the outermost wrapper.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *Orchestrator) { o.mw = middleware.Chain(mws...) }
}

// WithInvokeTimeout bounds each individual stage call.
func WithInvokeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.invokeTimeout = d }
}

// New creates a workflow orchestrator.
func New(stages *stage.Registry, store Store, emitter Emitter, logger *slog.Logger, opts ...Option) *Orchestrator {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		stages:  stages,
		store:   store,
		emitter: emitter,
		logger:  logger,
		locks:   keylock.New(),
		running: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start creates the workflow instance for an order and drives it until it
// suspends awaiting validation or reaches a terminal state. A second start
// for the same order fails with conveyor.ErrDuplicateInstance.
//
// Activity failures do not surface as Start errors; they are recorded on
// the instance, which the returned snapshot reflects.
func (o *Orchestrator) Start(ctx context.Context, orderID string, payload stage.Payload) (*Instance, error) {
	if orderID == "" {
		return nil, fmt.Errorf("workflow: start: empty order id")
	}

	input := payload.Clone()
	if input == nil {
		input = stage.Payload{}
	}
	input["order_id"] = orderID

	now := time.Now().UTC()
	in := &Instance{
		ID:        id.ForOrder(orderID),
		OrderID:   orderID,
		State:     StateCreated,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.store.CreateInstance(ctx, in); err != nil {
		return nil, fmt.Errorf("workflow: create instance for order %q: %w", orderID, err)
	}

	o.emitter.EmitOrderStarted(ctx, in)
	o.logger.Info("workflow started",
		slog.String("instance_id", in.ID.String()),
		slog.String("order_id", orderID),
	)

	if err := o.advance(ctx, in.ID); err != nil {
		o.logger.Error("workflow advance error",
			slog.String("instance_id", in.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return o.Status(ctx, orderID)
}

// RaiseEvent delivers an externally raised event to the instance suspended
// on it. If no instance is waiting for that exact event name and order,
// conveyor.ErrNoMatchingWaiter is returned and nothing changes: events
// must not resurrect a resumed or terminal instance.
func (o *Orchestrator) RaiseEvent(ctx context.Context, orderID, eventName string, payload []byte) error {
	instID := id.ForOrder(orderID)
	key := instID.String()

	o.locks.Lock(key)
	in, err := o.store.GetInstance(ctx, instID)
	if err != nil {
		o.locks.Unlock(key)
		if errors.Is(err, conveyor.ErrInstanceNotFound) {
			return conveyor.ErrNoMatchingWaiter
		}
		return err
	}
	if !in.Suspended() || in.WaitingFor != eventName {
		o.locks.Unlock(key)
		return conveyor.ErrNoMatchingWaiter
	}

	var decision struct {
		Approved bool `json:"approved"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &decision); err != nil {
			o.locks.Unlock(key)
			return fmt.Errorf("workflow: decode %s payload: %w", eventName, err)
		}
	}

	in.WaitingFor = ""
	status := "rejected"
	in.State = StateRejected
	if decision.Approved {
		status = "approved"
		in.State = StateValidated
	}
	in.History = append(in.History, StageResult{
		Stage:       "validate",
		Status:      status,
		CompletedAt: time.Now().UTC(),
	})
	o.persist(ctx, in)
	o.locks.Unlock(key)

	o.emitter.EmitValidationReceived(ctx, in, decision.Approved)
	o.logger.Info("validation event received",
		slog.String("instance_id", key),
		slog.String("order_id", orderID),
		slog.Bool("approved", decision.Approved),
	)

	return o.advance(ctx, instID)
}

// Pause halts forward progress without losing position. An activity call
// already outstanding is allowed to finish; its result is applied and the
// instance then rests until resumed.
func (o *Orchestrator) Pause(ctx context.Context, orderID string) error {
	instID := id.ForOrder(orderID)
	key := instID.String()

	o.locks.Lock(key)
	defer o.locks.Unlock(key)

	in, err := o.store.GetInstance(ctx, instID)
	if err != nil {
		return err
	}
	if in.Terminal() {
		return conveyor.ErrTerminal
	}

	in.Paused = true
	o.persist(ctx, in)
	o.logger.Info("workflow paused", slog.String("instance_id", key))
	return nil
}

// Resume continues a paused instance from its recorded position.
func (o *Orchestrator) Resume(ctx context.Context, orderID string) error {
	instID := id.ForOrder(orderID)
	key := instID.String()

	o.locks.Lock(key)
	in, err := o.store.GetInstance(ctx, instID)
	if err != nil {
		o.locks.Unlock(key)
		return err
	}
	if in.Terminal() {
		o.locks.Unlock(key)
		return conveyor.ErrTerminal
	}

	in.Paused = false
	o.persist(ctx, in)
	o.locks.Unlock(key)

	o.logger.Info("workflow resumed", slog.String("instance_id", key))
	return o.advance(ctx, instID)
}

// Cancel forces an immediate transition to StateFailed regardless of the
// current state. No compensating stage calls are made for already
// completed stages, and a late result from an in-flight activity call is
// discarded.
func (o *Orchestrator) Cancel(ctx context.Context, orderID string) error {
	instID := id.ForOrder(orderID)
	key := instID.String()

	o.locks.Lock(key)
	defer o.locks.Unlock(key)

	in, err := o.store.GetInstance(ctx, instID)
	if err != nil {
		return err
	}
	if in.Terminal() {
		return conveyor.ErrTerminal
	}

	in.Epoch++
	in.Paused = false
	in.WaitingFor = ""
	o.fail(ctx, in, errors.New("order cancelled"))
	return nil
}

// Status returns a read-only snapshot of the instance for an order. It
// never blocks on in-flight stage calls.
func (o *Orchestrator) Status(ctx context.Context, orderID string) (*Instance, error) {
	in, err := o.store.GetInstance(ctx, id.ForOrder(orderID))
	if err != nil {
		return nil, err
	}
	return in.Clone(), nil
}

// ResumeAll re-drives every non-terminal, non-suspended, non-paused
// instance found in the store. Called at startup for crash recovery;
// suspended instances stay parked until their event arrives. Instances
// interrupted mid-call are re-driven from their recorded active state,
// which re-invokes the interrupted stage (at-least-once on recovery).
func (o *Orchestrator) ResumeAll(ctx context.Context) error {
	instances, err := o.store.ListInstances(ctx, ListOpts{})
	if err != nil {
		return fmt.Errorf("workflow: list instances: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range instances {
		if in.Terminal() || in.Suspended() || in.Paused {
			continue
		}
		instID := in.ID
		o.logger.Info("resuming workflow instance",
			slog.String("instance_id", instID.String()),
			slog.String("state", string(in.State)),
		)
		g.Go(func() error {
			return o.advance(gctx, instID)
		})
	}
	return g.Wait()
}

// advance drives the instance forward until it suspends, pauses, fails,
// or completes. Stage calls happen outside the per-order lock so status
// reads and cancellation stay responsive; after each call the instance is
// reloaded and the result discarded if the epoch moved underneath it.
func (o *Orchestrator) advance(ctx context.Context, instID id.InstanceID) error {
	key := instID.String()

	o.mu.Lock()
	if o.running[key] {
		// Another goroutine in this process is already driving the
		// instance; it will observe any state we just persisted.
		o.mu.Unlock()
		return nil
	}
	o.running[key] = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, key)
		o.mu.Unlock()
	}()

	for {
		o.locks.Lock(key)
		in, err := o.store.GetInstance(ctx, instID)
		if err != nil {
			o.locks.Unlock(key)
			return fmt.Errorf("workflow: load instance %s: %w", key, err)
		}
		if in.Terminal() || in.Paused || in.Suspended() {
			o.locks.Unlock(key)
			return nil
		}

		if in.State == StateCooked {
			in.State = StateAwaitingValidation
			in.WaitingFor = EventValidationComplete
			o.persist(ctx, in)
			o.locks.Unlock(key)
			o.logger.Info("workflow suspended awaiting validation",
				slog.String("instance_id", key),
				slog.String("event", EventValidationComplete),
			)
			return nil
		}

		if in.State == StateRejected {
			o.fail(ctx, in, errors.New("pizza validation failed - need to remake"))
			o.locks.Unlock(key)
			return nil
		}

		ph, ok := phaseFor(in.State)
		if !ok {
			o.fail(ctx, in, fmt.Errorf("no transition from state %q", in.State))
			o.locks.Unlock(key)
			return nil
		}

		epoch := in.Epoch
		in.State = ph.active
		o.persist(ctx, in)
		input := in.nextInput()
		o.locks.Unlock(key)

		start := time.Now()
		result, invokeErr := o.invoke(ctx, ph, in.OrderID, input)
		elapsed := time.Since(start)

		o.locks.Lock(key)
		in, err = o.store.GetInstance(ctx, instID)
		if err != nil {
			o.locks.Unlock(key)
			return fmt.Errorf("workflow: reload instance %s: %w", key, err)
		}
		if in.Terminal() || in.Epoch != epoch {
			o.locks.Unlock(key)
			o.logger.Info("discarding stage result for interrupted instance",
				slog.String("instance_id", key),
				slog.String("stage", ph.stage),
			)
			return nil
		}

		switch {
		case invokeErr != nil:
			stageErr := fmt.Errorf("%s: %v", ph.label, invokeErr)
			o.emitter.EmitStageFailed(ctx, in, ph.stage, invokeErr)
			o.fail(ctx, in, stageErr)
			o.locks.Unlock(key)
			return nil
		case result.Status() != ph.confirm:
			stageErr := fmt.Errorf("%s: %s", ph.label, result.ErrorText())
			o.emitter.EmitStageFailed(ctx, in, ph.stage, stageErr)
			o.fail(ctx, in, stageErr)
			o.locks.Unlock(key)
			return nil
		}

		in.History = append(in.History, StageResult{
			Stage:       ph.stage,
			Status:      result.Status(),
			Result:      result,
			CompletedAt: time.Now().UTC(),
		})
		in.State = ph.done
		if ph.done == StateDelivered {
			o.complete(ctx, in, result)
		}
		o.persist(ctx, in)
		o.locks.Unlock(key)

		o.emitter.EmitStageCompleted(ctx, in, ph.stage, elapsed)
		if in.Terminal() {
			return nil
		}
	}
}

// phaseFor resolves the activity for a state. Both the resting state and
// its active counterpart map to the same phase, so an instance recovered
// mid-call is re-driven by re-invoking the interrupted stage.
func phaseFor(s State) (phase, bool) {
	if ph, ok := phases[s]; ok {
		return ph, true
	}
	for _, ph := range phases {
		if ph.active == s {
			return ph, true
		}
	}
	return phase{}, false
}

// invoke performs one activity call through the middleware chain.
func (o *Orchestrator) invoke(ctx context.Context, ph phase, orderID string, input stage.Payload) (stage.Payload, error) {
	st, ok := o.stages.Get(ph.stage)
	if !ok {
		return nil, fmt.Errorf("no stage registered for %q", ph.stage)
	}

	handler := func(ctx context.Context) (stage.Payload, error) {
		if o.invokeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.invokeTimeout)
			defer cancel()
		}
		return st.Invoke(ctx, input)
	}

	if o.mw == nil {
		return handler(ctx)
	}
	return o.mw(ctx, &middleware.Invocation{Stage: ph.stage, OrderID: orderID}, handler)
}

// fail records a terminal failure on the instance. Caller holds the
// per-order lock.
func (o *Orchestrator) fail(ctx context.Context, in *Instance, cause error) {
	now := time.Now().UTC()
	in.State = StateFailed
	in.WaitingFor = ""
	in.Error = cause.Error()
	in.Output = stage.Payload{
		"order_id": in.OrderID,
		"status":   "failed",
		"error":    cause.Error(),
	}
	in.CompletedAt = &now
	o.persist(ctx, in)

	o.emitter.EmitOrderFailed(ctx, in, cause)
	o.logger.Error("workflow failed",
		slog.String("instance_id", in.ID.String()),
		slog.String("order_id", in.OrderID),
		slog.String("error", cause.Error()),
	)
}

// complete records the terminal success outcome. Caller holds the
// per-order lock; the subsequent persist writes the record.
func (o *Orchestrator) complete(ctx context.Context, in *Instance, delivery stage.Payload) {
	now := time.Now().UTC()
	in.Output = stage.Payload{
		"order_id":        in.OrderID,
		"status":          "completed",
		"final_status":    "delivered",
		"delivery_result": map[string]any(delivery),
	}
	in.CompletedAt = &now

	o.emitter.EmitOrderCompleted(ctx, in, now.Sub(in.CreatedAt))
	o.logger.Info("workflow completed",
		slog.String("instance_id", in.ID.String()),
		slog.String("order_id", in.OrderID),
	)
}

// persist updates the stored instance, logging rather than failing the
// state machine on a write error; the next transition retries the write.
func (o *Orchestrator) persist(ctx context.Context, in *Instance) {
	in.UpdatedAt = time.Now().UTC()
	if err := o.store.UpdateInstance(ctx, in); err != nil {
		o.logger.Error("failed to persist instance",
			slog.String("instance_id", in.ID.String()),
			slog.String("state", string(in.State)),
			slog.String("error", err.Error()),
		)
	}
}
