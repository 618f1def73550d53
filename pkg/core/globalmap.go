// pkg/core/globalmap.go
package core

// GlobalMap is the converged (or converging) registration state:
// every known beacon in the root scanner's frame, plus the scanners that
// have been placed, in the order they were resolved.
type GlobalMap struct {
	Beacons  *PointSet
	Resolved []Scanner
}

// NewGlobalMap seeds the map with the root scanner, which is placed at the
// origin with the identity rotation.
func NewGlobalMap(root Scanner) *GlobalMap {
	root.State = ScannerResolved
	root.Position = Point{}
	root.Rotation = IdentityRotation
	return &GlobalMap{
		Beacons:  NewPointSet(root.Detections...),
		Resolved: []Scanner{root},
	}
}

// Merge records a newly resolved scanner and unions its detections,
// already expressed in the global frame, into the beacon set.
// It returns the number of beacons that were not known before.
func (m *GlobalMap) Merge(s Scanner, global []Point) int {
	s.State = ScannerResolved
	m.Resolved = append(m.Resolved, s)
	return m.Beacons.Add(global...)
}

// Scanner returns the resolved scanner with the given id.
func (m *GlobalMap) Scanner(id int) (Scanner, bool) {
	for _, s := range m.Resolved {
		if s.ID == id {
			return s, true
		}
	}
	return Scanner{}, false
}
