package keylock_test

import (
	"sync"
	"testing"

	"github.com/ovenworks/conveyor/keylock"
)

func TestMutualExclusionPerKey(t *testing.T) {
	m := keylock.New()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("a")
			counter++
			m.Unlock("a")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	m := keylock.New()
	m.Lock("a")
	defer m.Unlock("a")

	done := make(chan struct{})
	go func() {
		m.Lock("b")
		m.Unlock("b")
		close(done)
	}()

	<-done
}

func TestUnlockOfUnlockedKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on unlock of unlocked key")
		}
	}()

	keylock.New().Unlock("never-locked")
}

func TestKeyReuseAfterReclaim(t *testing.T) {
	m := keylock.New()

	// Lock entries are reclaimed on final unlock; the key must still work.
	for i := 0; i < 3; i++ {
		m.Lock("a")
		m.Unlock("a")
	}
}
