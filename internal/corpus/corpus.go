// Package corpus builds deterministic scanner corpora with a known answer,
// for tests and for the CLI demo command.
package corpus

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// Corpus is a set of scanner reports generated from a known ground truth.
// Ground truth is expressed in the frame of the first scanner, which sits at
// the origin with the identity rotation.
type Corpus struct {
	Scanners  []core.Scanner // pending, detections in each scanner's local frame
	Positions map[int]core.Point
	Rotations map[int]core.Rotation
	Beacons   []core.Point // global frame
}

// Group is a batch of beacons seen by exactly the listed scanners.
type Group struct {
	Size    int   `yaml:"size"`
	Viewers []int `yaml:"viewers"`
}

// Placement fixes where a scanner sits and how it is turned.
type Placement struct {
	ID       int
	Position core.Point
	Rotation core.Rotation
}

// FiveScannerPlacements mirrors the layout of the well known five scanner
// example: its scanner positions give a maximum Manhattan distance of 3621.
var FiveScannerPlacements = []Placement{
	{ID: 0, Position: core.Point{X: 0, Y: 0, Z: 0}, Rotation: 0},
	{ID: 1, Position: core.Point{X: 68, Y: -1246, Z: -43}, Rotation: 5},
	{ID: 2, Position: core.Point{X: 1105, Y: -1205, Z: 1229}, Rotation: 13},
	{ID: 3, Position: core.Point{X: -92, Y: -2380, Z: -20}, Rotation: 20},
	{ID: 4, Position: core.Point{X: -20, Y: -1133, Z: 1061}, Rotation: 9},
}

// FiveScannerGroups links the scanners 0-1, 1-3-4 and 4-2 with twelve shared
// beacons each; 79 beacons in total, 25 or 26 per scanner.
var FiveScannerGroups = []Group{
	{Size: 12, Viewers: []int{0, 1}},
	{Size: 12, Viewers: []int{1, 3, 4}},
	{Size: 12, Viewers: []int{2, 4}},
	{Size: 13, Viewers: []int{0}},
	{Size: 2, Viewers: []int{1}},
	{Size: 13, Viewers: []int{2}},
	{Size: 13, Viewers: []int{3}},
	{Size: 2, Viewers: []int{4}},
}

// FiveScanners returns the five scanner corpus.
func FiveScanners() Corpus {
	return Generate(19, FiveScannerPlacements, FiveScannerGroups)
}

// Generate builds a corpus from placements and beacon groups. Beacons of a
// group are scattered around the centroid of their viewers. The same seed
// always yields the same corpus. The first placement must be at the origin
// with the identity rotation for the ground truth to be in its frame.
func Generate(seed int64, placements []Placement, groups []Group) Corpus {
	rng := rand.New(rand.NewSource(seed))

	byID := make(map[int]Placement, len(placements))
	c := Corpus{
		Positions: make(map[int]core.Point, len(placements)),
		Rotations: make(map[int]core.Rotation, len(placements)),
	}
	for _, p := range placements {
		byID[p.ID] = p
		c.Positions[p.ID] = p.Position
		c.Rotations[p.ID] = p.Rotation
	}

	used := make(map[core.Point]bool)
	local := make(map[int][]core.Point, len(placements))
	for _, g := range groups {
		centre := centroid(g.Viewers, byID)
		for i := 0; i < g.Size; i++ {
			var b core.Point
			for {
				b = centre.Add(core.Point{
					X: rng.Intn(801) - 400,
					Y: rng.Intn(801) - 400,
					Z: rng.Intn(801) - 400,
				})
				if !used[b] {
					break
				}
			}
			used[b] = true
			c.Beacons = append(c.Beacons, b)
			for _, id := range g.Viewers {
				p := byID[id]
				inv := orientation.Inverse(p.Rotation)
				local[id] = append(local[id], orientation.ApplyPoint(inv, b.Sub(p.Position)))
			}
		}
	}

	for _, p := range placements {
		pts := local[p.ID]
		rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })
		c.Scanners = append(c.Scanners, core.NewScanner(p.ID, pts))
	}
	return c
}

func centroid(ids []int, byID map[int]Placement) core.Point {
	var sum core.Point
	for _, id := range ids {
		sum = sum.Add(byID[id].Position)
	}
	n := len(ids)
	return core.Point{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}
}

// MaxDistance returns the largest Manhattan distance between ground truth
// scanner positions.
func (c Corpus) MaxDistance() int {
	ids := make([]int, 0, len(c.Positions))
	for id := range c.Positions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	best := 0
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if d := c.Positions[ids[i]].Manhattan(c.Positions[ids[j]]); d > best {
				best = d
			}
		}
	}
	return best
}

// Report renders the corpus in the scanner report text format.
func (c Corpus) Report() string {
	var b strings.Builder
	for i, s := range c.Scanners {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- scanner %d ---\n", s.ID)
		for _, p := range s.Detections {
			b.WriteString(p.String())
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Clone returns scanners that can be handed to an engine without sharing
// detection slices with the corpus.
func (c Corpus) Clone() []core.Scanner {
	out := make([]core.Scanner, len(c.Scanners))
	for i, s := range c.Scanners {
		out[i] = core.NewScanner(s.ID, append([]core.Point(nil), s.Detections...))
	}
	return out
}
