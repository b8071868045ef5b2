package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_MutualExclusionPerKey(t *testing.T) {
	kl := New()

	const workers = 16
	const iters = 100
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				kl.Lock("session-1")
				counter++
				kl.Unlock("session-1")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iters, counter)
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	kl := New()

	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Lock("b") // must not block on "a"
		kl.Unlock("b")
		close(done)
	}()
	<-done
	kl.Unlock("a")
}

func TestKeyLock_EntriesFreed(t *testing.T) {
	kl := New()

	kl.Lock("x")
	kl.Unlock("x")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	assert.Empty(t, kl.locks)
}

func TestKeyLock_UnlockUnheldPanics(t *testing.T) {
	kl := New()
	assert.Panics(t, func() { kl.Unlock("nope") })
}
