package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_StartsAtStart(t *testing.T) {
	clock := NewStepClock(Epoch, time.Second)
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, int64(1), clock.Calls())
}

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(Epoch, time.Minute)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Minute), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Minute), clock.Now())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(Epoch, time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Calls())
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ConcurrentAccess(t *testing.T) {
	clock := NewStepClock(Epoch, time.Millisecond)

	const goroutines = 10
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*callsPerGoroutine), clock.Calls())
}
