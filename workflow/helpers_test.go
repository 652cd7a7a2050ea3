package workflow_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ovenworks/conveyor/stage"
	"github.com/ovenworks/conveyor/store/memory"
	"github.com/ovenworks/conveyor/workflow"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStage is an in-process Stage recording every call.
type fakeStage struct {
	name string
	fn   func(ctx context.Context, p stage.Payload) (stage.Payload, error)

	mu        sync.Mutex
	calls     int
	lastInput stage.Payload
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Invoke(ctx context.Context, p stage.Payload) (stage.Payload, error) {
	f.mu.Lock()
	f.calls++
	f.lastInput = p.Clone()
	f.mu.Unlock()
	return f.fn(ctx, p)
}

func (f *fakeStage) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStage) input() stage.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}

// confirming returns a fake stage that answers with the given confirming
// status and annotates the payload with a result marker.
func confirming(name, status string) *fakeStage {
	return &fakeStage{
		name: name,
		fn: func(_ context.Context, p stage.Payload) (stage.Payload, error) {
			out := p.Clone()
			out["status"] = status
			out[name+"_result"] = name + " done"
			return out, nil
		},
	}
}

// pipeline builds a registry with the three happy-path stages.
func pipeline() (*stage.Registry, map[string]*fakeStage) {
	stages := map[string]*fakeStage{
		"order":   confirming("order", "confirmed"),
		"cook":    confirming("cook", "cooked"),
		"deliver": confirming("deliver", "delivered"),
	}
	reg := stage.NewRegistry()
	for _, st := range stages {
		reg.Register(st)
	}
	return reg, stages
}

// newOrchestrator wires an orchestrator over a fresh memory store.
func newOrchestrator(reg *stage.Registry, opts ...workflow.Option) (*workflow.Orchestrator, *memory.Store) {
	s := memory.New()
	o := workflow.New(reg, s, workflow.NopEmitter{}, testLogger(), opts...)
	return o, s
}

// approvedPayload is the ValidationComplete body for a positive decision.
const approvedPayload = `{"approved": true}`

// rejectedPayload is the ValidationComplete body for a negative decision.
const rejectedPayload = `{"approved": false}`
