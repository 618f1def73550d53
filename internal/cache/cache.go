package cache

import (
	"sync"

	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// OrientationCache keeps the 24 rotated copies of each scanner's detections
// so that repeated registration attempts for a pending scanner do not
// re-rotate the same points every pass.
// Safe for concurrent use by parallel registration workers.
type OrientationCache struct {
	mu       sync.RWMutex
	scanners map[int][][]core.Point
}

func NewOrientationCache() *OrientationCache {
	return &OrientationCache{
		scanners: make(map[int][][]core.Point),
	}
}

// Get returns the cached orientations of a scanner, if present.
func (c *OrientationCache) Get(id int) ([][]core.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.scanners[id]
	return o, ok
}

// Oriented returns the scanner's detections under all 24 rotations,
// computing and storing them on first use. Callers must not modify the
// returned slices.
func (c *OrientationCache) Oriented(s core.Scanner) [][]core.Point {
	if o, ok := c.Get(s.ID); ok {
		return o
	}
	o := orientation.Oriented(s.Detections)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.scanners[s.ID]; ok {
		return existing
	}
	c.scanners[s.ID] = o
	return o
}

// Forget drops a scanner, typically once it has been resolved.
func (c *OrientationCache) Forget(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scanners, id)
}

// Reset drops every scanner.
func (c *OrientationCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanners = make(map[int][][]core.Point)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
