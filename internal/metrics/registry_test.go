package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(4)
	assert.Equal(t, uint64(5), c.Load())
}

func TestRegistry_ConcurrentInc(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Inc("transition.ACCEPTED")
		}()
	}
	wg.Wait()

	assert.Same(t, r.Counter("transition.ACCEPTED"), r.Counter("transition.ACCEPTED"))
	assert.Equal(t, map[string]uint64{"transition.ACCEPTED": 50}, r.Snapshot())
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() { r.Inc("x") })
	assert.Empty(t, r.Snapshot())
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), time.Millisecond)
}
