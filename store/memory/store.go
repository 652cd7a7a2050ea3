// Package memory implements store.Store with mutex-guarded maps. Safe
// for concurrent access. Intended for unit testing and single-process
// development setups.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/event"
	"github.com/ovenworks/conveyor/id"
	"github.com/ovenworks/conveyor/order"
	"github.com/ovenworks/conveyor/workflow"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ order.Store    = (*Store)(nil)
	_ workflow.Store = (*Store)(nil)
	_ event.Store    = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	orders    map[string]order.Record
	instances map[string]*workflow.Instance
	events    map[string]*event.Event

	// eventSeq preserves publish order for ListEvents.
	eventSeq []string
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		orders:    make(map[string]order.Record),
		instances: make(map[string]*workflow.Instance),
		events:    make(map[string]*event.Event),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Order Store
// ──────────────────────────────────────────────────

// GetOrder retrieves the record for an order.
func (m *Store) GetOrder(_ context.Context, orderID string) (order.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.orders[orderID]
	if !ok {
		return nil, conveyor.ErrOrderNotFound
	}
	return rec.Clone(), nil
}

// PutOrder writes the record for an order, replacing any previous one.
func (m *Store) PutOrder(_ context.Context, orderID string, rec order.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[orderID] = rec.Clone()
	return nil
}

// DeleteOrder removes the record for an order, if any.
func (m *Store) DeleteOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.orders, orderID)
	return nil
}

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// CreateInstance persists a new workflow instance.
func (m *Store) CreateInstance(_ context.Context, in *workflow.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := in.ID.String()
	if _, exists := m.instances[key]; exists {
		return conveyor.ErrDuplicateInstance
	}
	m.instances[key] = in.Clone()
	return nil
}

// GetInstance retrieves a workflow instance by ID.
func (m *Store) GetInstance(_ context.Context, instanceID id.InstanceID) (*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.instances[instanceID.String()]
	if !ok {
		return nil, conveyor.ErrInstanceNotFound
	}
	return in.Clone(), nil
}

// UpdateInstance persists changes to an existing workflow instance.
func (m *Store) UpdateInstance(_ context.Context, in *workflow.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := in.ID.String()
	if _, exists := m.instances[key]; !exists {
		return conveyor.ErrInstanceNotFound
	}
	m.instances[key] = in.Clone()
	return nil
}

// ListInstances returns instances matching the given options, oldest first.
func (m *Store) ListInstances(_ context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*workflow.Instance, 0, len(m.instances))
	for _, in := range m.instances {
		if opts.State != "" && in.State != opts.State {
			continue
		}
		out = append(out, in.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ──────────────────────────────────────────────────
// Event Store
// ──────────────────────────────────────────────────

// PublishEvent persists a new trigger event.
func (m *Store) PublishEvent(_ context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := evt.ID.String()
	cp := *evt
	cp.Payload = append([]byte(nil), evt.Payload...)
	m.events[key] = &cp
	m.eventSeq = append(m.eventSeq, key)
	return nil
}

// ListEvents returns all events addressed to an instance, oldest first.
func (m *Store) ListEvents(_ context.Context, instanceID id.InstanceID) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*event.Event
	for _, key := range m.eventSeq {
		evt, ok := m.events[key]
		if !ok || evt.InstanceID != instanceID {
			continue
		}
		cp := *evt
		cp.Payload = append([]byte(nil), evt.Payload...)
		out = append(out, &cp)
	}
	return out, nil
}

// AckEvent marks an event as consumed.
func (m *Store) AckEvent(_ context.Context, eventID id.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evt, ok := m.events[eventID.String()]
	if !ok {
		return conveyor.ErrEventNotFound
	}
	evt.Acked = true
	return nil
}
