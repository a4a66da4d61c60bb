package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInstanceLocks_SerializesSameID(t *testing.T) {
	locks := newInstanceLocks()

	unlock := locks.Lock("a")
	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		release := locks.Lock("a")
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-acquired
	assert.Equal(t, 0, locks.size())
}

func TestInstanceLocks_IndependentIDs(t *testing.T) {
	locks := newInstanceLocks()

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, locks.size())
}

func TestInstanceLocks_CounterUnderContention(t *testing.T) {
	locks := newInstanceLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("shared")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, locks.size())
}
