// Package stage abstracts the downstream services an order passes through.
// Each stage is a named activity invoked synchronously with the current
// order payload; the orchestrator depends only on the Stage interface, so
// tests substitute in-process fakes for the real HTTP endpoints.
package stage

import (
	"context"
	"sort"
	"sync"
)

// Payload is the JSON object threaded through every stage: the order
// details supplied by the client, progressively annotated with each
// stage's result fields.
type Payload map[string]any

// OrderID returns the payload's order ID, or "" if absent.
func (p Payload) OrderID() string {
	s, _ := p["order_id"].(string)
	return s
}

// Status returns the payload's status field, or "" if absent.
func (p Payload) Status() string {
	s, _ := p["status"].(string)
	return s
}

// ErrorText returns the payload's error field, or "unknown error" when the
// stage reported a failure without attaching one.
func (p Payload) ErrorText() string {
	if s, ok := p["error"].(string); ok && s != "" {
		return s
	}
	return "unknown error"
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	cp := make(Payload, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Stage is one downstream step of the order pipeline.
type Stage interface {
	// Name is the well-known stage name ("order", "cook", "deliver").
	Name() string

	// Invoke performs the stage's work synchronously and returns its
	// result payload. Transport-level problems are reported as a *Failure.
	Invoke(ctx context.Context, p Payload) (Payload, error)
}

// Registry maps stage names to implementations. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage to the registry, replacing any previous stage
// registered under the same name.
func (r *Registry) Register(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[s.Name()] = s
}

// Get returns the stage registered under the given name.
func (r *Registry) Get(name string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[name]
	return s, ok
}

// Names returns the sorted names of all registered stages.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
