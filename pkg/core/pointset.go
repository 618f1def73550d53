// pkg/core/pointset.go
package core

// PointSet is a set of unique points that remembers insertion order.
// Iteration order is deterministic so that searches over a set are
// reproducible run to run. It is not safe for concurrent mutation;
// concurrent readers are fine while nobody writes.
type PointSet struct {
	index map[Point]struct{}
	order []Point
}

// NewPointSet creates a set seeded with pts. Duplicates collapse.
func NewPointSet(pts ...Point) *PointSet {
	s := &PointSet{
		index: make(map[Point]struct{}, len(pts)),
		order: make([]Point, 0, len(pts)),
	}
	s.Add(pts...)
	return s
}

// Add inserts points and returns how many were new.
func (s *PointSet) Add(pts ...Point) int {
	added := 0
	for _, p := range pts {
		if _, ok := s.index[p]; ok {
			continue
		}
		s.index[p] = struct{}{}
		s.order = append(s.order, p)
		added++
	}
	return added
}

// Contains reports whether p is in the set.
func (s *PointSet) Contains(p Point) bool {
	_, ok := s.index[p]
	return ok
}

// Len returns the number of distinct points.
func (s *PointSet) Len() int {
	return len(s.order)
}

// Points returns a copy of the members in insertion order.
func (s *PointSet) Points() []Point {
	out := make([]Point, len(s.order))
	copy(out, s.order)
	return out
}

// Each calls fn for every member in insertion order until fn returns false.
func (s *PointSet) Each(fn func(Point) bool) {
	for _, p := range s.order {
		if !fn(p) {
			return
		}
	}
}

// Clone returns an independent copy, used as a read-only snapshot.
func (s *PointSet) Clone() *PointSet {
	return NewPointSet(s.order...)
}

// Unique returns pts with duplicates removed, keeping first occurrences.
func Unique(pts []Point) []Point {
	seen := make(map[Point]struct{}, len(pts))
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
