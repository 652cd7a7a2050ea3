// Package conveyor coordinates a multi-stage order pipeline that spans
// independently deployed stage services. It drives each order through
// placement, cooking, human validation, and delivery, reconciles the
// asynchronous status events the stages publish into a single durable
// record, and exposes externally triggerable transitions such as the
// validation decision.
//
// Conveyor is a library, not a service. Configure a store, register the
// stage endpoints, and start orders through the workflow orchestrator:
//
//	cfg := conveyor.DefaultConfig()
//	s := memory.New()
//	orch := workflow.New(cfg.Stages(), s, workflow.NopEmitter{}, logger)
//	inst, err := orch.Start(ctx, "42", stage.Payload{"pizza": "margherita"})
//
// # Architecture
//
// Each subsystem lives in its own package with its own store interface:
// order (the reconciled order record), workflow (the per-order state
// machine), event (external trigger events). A single backend (memory,
// redis) implements all of them.
//
// The orchestrator is an explicit durable state machine. Every transition
// is persisted before and after its side effect, and suspension points are
// recorded as pending-event markers rather than parked goroutines, so an
// instance can resume in a different process after arbitrary wall-clock
// delay.
package conveyor
