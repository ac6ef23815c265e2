package bot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserLocksSerializeSameUser(t *testing.T) {
	locks := newUserLocks()

	// A non-atomic counter would race without per-user serialization;
	// run with -race to make regressions visible.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(42)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Empty(t, locks.locks, "released entries must not accumulate")
}

func TestUserLocksDoNotBlockOtherUsers(t *testing.T) {
	locks := newUserLocks()

	unlockA := locks.lock(1)

	// Would deadlock if user 1's lock blocked user 2
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock(2)
		unlockB()
		close(done)
	}()
	<-done

	assert.Len(t, locks.locks, 1, "user 2's entry is gone, user 1 still holds one")
	unlockA()
	assert.Empty(t, locks.locks)
}

func TestUserLocksEvictOnlyWhenUncontended(t *testing.T) {
	locks := newUserLocks()

	unlockA := locks.lock(42)

	// A second goroutine queues up on the same user before the first
	// release: the entry must survive until both are done.
	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		unlock := locks.lock(42)
		close(acquired)
		unlock()
		close(released)
	}()

	// The waiter has registered its interest once refs reflect it
	assert.Eventually(t, func() bool {
		locks.mu.Lock()
		defer locks.mu.Unlock()
		return locks.locks[42] != nil && locks.locks[42].refs == 2
	}, time.Second, time.Millisecond)

	unlockA()
	<-acquired
	<-released

	assert.Empty(t, locks.locks)
}
