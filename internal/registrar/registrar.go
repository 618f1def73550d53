// Package registrar decides whether one scanner's detections can be placed
// onto a reference point set by a lattice rotation and an integer translation.
//
// Every function here is pure: the reference set is only read and the same
// inputs always produce the same answer.
package registrar

import (
	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// Alignment maps candidate-local points into the reference frame:
// global = rotate(Rotation, local) + Translation.
type Alignment struct {
	Rotation    core.Rotation
	Translation core.Point
	Overlap     int // coincident points under this alignment
}

// Transform applies the alignment to local points.
func (a Alignment) Transform(local []core.Point) []core.Point {
	out := orientation.Apply(a.Rotation, local)
	for i := range out {
		out[i] = out[i].Add(a.Translation)
	}
	return out
}

// Inverse returns the alignment mapping reference-frame points back into the
// candidate's local frame.
func (a Alignment) Inverse() Alignment {
	inv := orientation.Inverse(a.Rotation)
	return Alignment{
		Rotation:    inv,
		Translation: orientation.ApplyPoint(inv, a.Translation).Neg(),
		Overlap:     a.Overlap,
	}
}

// TryRegister searches the 24 rotations of candidate for a translation that
// makes at least minOverlap of its points coincide with reference points.
// The first qualifying (rotation, translation) in rotation order wins.
// A false result is the ordinary outcome for scanners that do not overlap.
// minOverlap below 1 is treated as 1.
func TryRegister(reference *core.PointSet, candidate []core.Point, minOverlap int) (Alignment, bool) {
	if minOverlap < 1 {
		minOverlap = 1
	}
	candidate = core.Unique(candidate)
	if reference.Len() < minOverlap || len(candidate) < minOverlap {
		return Alignment{}, false
	}
	return TryRegisterOriented(reference, orientation.Oriented(candidate), minOverlap)
}

// TryRegisterOriented is TryRegister for a candidate that has already been
// rotated into all 24 orientations (indexed by rotation label). Each
// orientation must hold unique points.
func TryRegisterOriented(reference *core.PointSet, oriented [][]core.Point, minOverlap int) (Alignment, bool) {
	if minOverlap < 1 {
		minOverlap = 1
	}
	if reference.Len() < minOverlap {
		return Alignment{}, false
	}
	refs := reference.Points()

	for r, rotated := range oriented {
		if len(rotated) < minOverlap {
			continue
		}
		// every qualifying translation maps some candidate point onto some
		// reference point, so counting r-c over all pairs finds it
		counts := make(map[core.Point]int, len(refs)*len(rotated))
		for _, c := range rotated {
			for _, p := range refs {
				t := p.Sub(c)
				counts[t]++
				if counts[t] >= minOverlap {
					return Alignment{
						Rotation:    core.Rotation(r),
						Translation: t,
						Overlap:     Overlap(reference, rotated, t),
					}, true
				}
			}
		}
	}
	return Alignment{}, false
}

// BestAlignment returns the alignment with the largest overlap over all
// rotations and candidate translations, regardless of any threshold.
// Ties keep the first alignment found in rotation order. It reports false
// only when either input is empty.
func BestAlignment(reference *core.PointSet, candidate []core.Point) (Alignment, bool) {
	candidate = core.Unique(candidate)
	if reference.Len() == 0 || len(candidate) == 0 {
		return Alignment{}, false
	}
	refs := reference.Points()

	var best Alignment
	for r, rotated := range orientation.Oriented(candidate) {
		counts := make(map[core.Point]int, len(refs)*len(rotated))
		for _, c := range rotated {
			for _, p := range refs {
				t := p.Sub(c)
				counts[t]++
				if counts[t] > best.Overlap {
					best = Alignment{Rotation: core.Rotation(r), Translation: t, Overlap: counts[t]}
				}
			}
		}
	}
	return best, true
}

// Overlap counts rotated candidate points that land on reference points
// after translation by t.
func Overlap(reference *core.PointSet, rotated []core.Point, t core.Point) int {
	n := 0
	for _, c := range rotated {
		if reference.Contains(c.Add(t)) {
			n++
		}
	}
	return n
}
