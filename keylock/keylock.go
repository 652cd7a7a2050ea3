// Package keylock provides per-key mutual exclusion. Both the workflow
// orchestrator and the event reconciler serialize read-modify-write cycles
// per order key with it; operations on distinct keys never contend.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Mutex is a set of named mutexes. Lock entries are created on first use
// and reclaimed once no goroutine holds or waits on them.
type Mutex struct {
	mu   sync.Mutex
	keys map[string]*entry
}

// New returns an empty keyed mutex.
func New() *Mutex {
	return &Mutex{keys: make(map[string]*entry)}
}

// Lock acquires the mutex for the given key, blocking while another
// goroutine holds it.
func (m *Mutex) Lock(key string) {
	m.mu.Lock()
	e, ok := m.keys[key]
	if !ok {
		e = &entry{}
		m.keys[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for the given key. It panics if the key is
// not locked, mirroring sync.Mutex semantics.
func (m *Mutex) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.keys[key]
	if !ok {
		m.mu.Unlock()
		panic("keylock: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.keys, key)
	}
	m.mu.Unlock()

	e.mu.Unlock()
}
