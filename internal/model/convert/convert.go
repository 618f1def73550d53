// Package convert provides functions to convert GORM models to core models
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/OCAP2/beaconmap/internal/geo"
	"github.com/OCAP2/beaconmap/internal/model"
	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// ErrRotationMismatch is returned when a stored rotation label and its
// matrix disagree.
var ErrRotationMismatch = errors.New("rotation label does not match stored matrix")

// ScannerPlacementToCore converts a GORM ScannerPlacement to a resolved
// core.Scanner. Detections are not stored, so the result has none.
func ScannerPlacementToCore(s model.ScannerPlacement) (core.Scanner, error) {
	rot := core.Rotation(s.Rotation)
	if !orientation.Valid(rot) {
		return core.Scanner{}, fmt.Errorf("scanner %d: invalid rotation %d", s.ScannerID, s.Rotation)
	}
	if len(s.RotationMatrix) > 0 && string(s.RotationMatrix) != "[]" {
		var m orientation.Matrix
		if err := json.Unmarshal(s.RotationMatrix, &m); err != nil {
			return core.Scanner{}, fmt.Errorf("scanner %d: decode rotation matrix: %w", s.ScannerID, err)
		}
		if got, ok := orientation.Lookup(m); !ok || got != rot {
			return core.Scanner{}, fmt.Errorf("scanner %d: %w", s.ScannerID, ErrRotationMismatch)
		}
	}
	pos, err := geo.ToPoint(s.Position)
	if err != nil {
		return core.Scanner{}, fmt.Errorf("scanner %d: %w", s.ScannerID, err)
	}
	return core.Scanner{
		ID:       s.ScannerID,
		State:    core.ScannerResolved,
		Position: pos,
		Rotation: rot,
	}, nil
}

// BeaconToCore converts a GORM Beacon to a core.Point, using the integer
// columns.
func BeaconToCore(b model.Beacon) core.Point {
	return core.Point{X: b.X, Y: b.Y, Z: b.Z}
}

// RunToCore converts a GORM Run, with scanners and beacons preloaded, back
// to a core.Run. Scanners are ordered by ResolveOrder and beacons by Seq.
func RunToCore(r model.Run) (*core.Run, error) {
	placements := append([]model.ScannerPlacement(nil), r.Scanners...)
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].ResolveOrder < placements[j].ResolveOrder
	})
	beacons := append([]model.Beacon(nil), r.Beacons...)
	sort.SliceStable(beacons, func(i, j int) bool { return beacons[i].Seq < beacons[j].Seq })

	m := &core.GlobalMap{Beacons: core.NewPointSet()}
	for _, b := range beacons {
		m.Beacons.Add(BeaconToCore(b))
	}
	for _, p := range placements {
		s, err := ScannerPlacementToCore(p)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", r.UUID, err)
		}
		m.Resolved = append(m.Resolved, s)
	}

	var unresolved []int
	if len(r.Unresolved) > 0 {
		if err := json.Unmarshal(r.Unresolved, &unresolved); err != nil {
			return nil, fmt.Errorf("run %s: decode unresolved scanners: %w", r.UUID, err)
		}
	}

	return &core.Run{
		ID:          r.UUID,
		Source:      r.Source,
		MinOverlap:  r.MinOverlap,
		RootID:      r.RootScanner,
		StartTime:   r.StartTime,
		Duration:    time.Duration(r.DurationMs) * time.Millisecond,
		Map:         m,
		BeaconCount: r.BeaconCount,
		MaxDistance: r.MaxDistance,
		Unresolved:  unresolved,
	}, nil
}
