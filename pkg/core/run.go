// pkg/core/run.go
package core

import "time"

// Run describes one registration run and its outcome, as handed to storage
// backends and metric reporters.
type Run struct {
	ID          string // uuid
	Source      string // input the scanners were read from
	MinOverlap  int
	RootID      int
	StartTime   time.Time
	Duration    time.Duration
	Map         *GlobalMap
	BeaconCount int
	MaxDistance int   // 0 when fewer than two scanners were resolved
	Unresolved  []int // scanners left pending when registration stalled
}
