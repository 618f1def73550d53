package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

func testScanner(id int) core.Scanner {
	return core.NewScanner(id, []core.Point{{X: 1, Y: 2, Z: 3}, {X: -4, Y: 5, Z: 6}})
}

func TestOrientationCache_New(t *testing.T) {
	c := NewOrientationCache()
	require.NotNil(t, c)
	_, ok := c.Get(0)
	assert.False(t, ok)
}

func TestOrientationCache_OrientedComputesOnce(t *testing.T) {
	c := NewOrientationCache()
	s := testScanner(3)

	first := c.Oriented(s)
	require.Len(t, first, orientation.Count)
	assert.Equal(t, s.Detections, first[0])

	got, ok := c.Get(3)
	require.True(t, ok)
	assert.Same(t, &first[0][0], &got[0][0])

	second := c.Oriented(s)
	assert.Same(t, &first[5][0], &second[5][0])
}

func TestOrientationCache_GetMissing(t *testing.T) {
	c := NewOrientationCache()
	_, ok := c.Get(999)
	assert.False(t, ok)
}

func TestOrientationCache_ForgetAndReset(t *testing.T) {
	c := NewOrientationCache()
	c.Oriented(testScanner(1))
	c.Oriented(testScanner(2))

	c.Forget(1)
	_, ok := c.Get(1)
	assert.False(t, ok)
	_, ok = c.Get(2)
	assert.True(t, ok)

	c.Reset()
	_, ok = c.Get(2)
	assert.False(t, ok)
}

func TestOrientationCache_ResetDropsStaleDetections(t *testing.T) {
	c := NewOrientationCache()
	c.Oriented(testScanner(1))
	c.Reset()

	moved := core.NewScanner(1, []core.Point{{X: 7, Y: 8, Z: 9}})
	out := c.Oriented(moved)
	assert.Equal(t, moved.Detections, out[0])
}

func TestOrientationCache_ConcurrentAccess(t *testing.T) {
	c := NewOrientationCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			out := c.Oriented(testScanner(id % 10))
			assert.Len(t, out, orientation.Count)
		}(i)
	}
	wg.Wait()

	for id := 0; id < 10; id++ {
		_, ok := c.Get(id)
		assert.True(t, ok, "scanner %d", id)
	}
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	assert.Equal(t, 0, c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, 2, c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	var c SafeCounter
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Value())
}
