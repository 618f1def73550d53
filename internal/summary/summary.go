// Package summary answers read-only questions about a converged global map.
package summary

import (
	"errors"
	"fmt"

	"github.com/OCAP2/beaconmap/pkg/core"
)

// ErrInsufficientData is returned by queries that need at least two resolved scanners.
var ErrInsufficientData = errors.New("insufficient data")

// Summary wraps a global map for queries. It never modifies the map.
type Summary struct {
	m *core.GlobalMap
}

// New creates a Summary over m.
func New(m *core.GlobalMap) *Summary {
	return &Summary{m: m}
}

// BeaconCount returns the number of distinct beacons in the global frame.
func (s *Summary) BeaconCount() int {
	if s.m == nil || s.m.Beacons == nil {
		return 0
	}
	return s.m.Beacons.Len()
}

// ScannerCount returns the number of resolved scanners.
func (s *Summary) ScannerCount() int {
	if s.m == nil {
		return 0
	}
	return len(s.m.Resolved)
}

// MaxScannerDistance returns the largest Manhattan distance between any two
// resolved scanner positions.
func (s *Summary) MaxScannerDistance() (int, error) {
	if s.ScannerCount() < 2 {
		return 0, fmt.Errorf("%w: max scanner distance needs 2 resolved scanners, have %d",
			ErrInsufficientData, s.ScannerCount())
	}
	best := 0
	resolved := s.m.Resolved
	for i := range resolved {
		for j := i + 1; j < len(resolved); j++ {
			if d := resolved[i].Position.Manhattan(resolved[j].Position); d > best {
				best = d
			}
		}
	}
	return best, nil
}

// Positions returns the global position of each resolved scanner keyed by id.
func (s *Summary) Positions() map[int]core.Point {
	out := make(map[int]core.Point, s.ScannerCount())
	if s.m == nil {
		return out
	}
	for _, sc := range s.m.Resolved {
		out[sc.ID] = sc.Position
	}
	return out
}

// Beacons returns every beacon in the global frame in discovery order.
func (s *Summary) Beacons() []core.Point {
	if s.m == nil || s.m.Beacons == nil {
		return nil
	}
	return s.m.Beacons.Points()
}
