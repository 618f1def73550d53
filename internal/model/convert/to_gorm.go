// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/beaconmap/internal/geo"
	"github.com/OCAP2/beaconmap/internal/model"
	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
	"gorm.io/datatypes"
)

// rotationToJSON stores the rotation matrix of r as a JSON array of rows.
func rotationToJSON(r core.Rotation) datatypes.JSON {
	if !orientation.Valid(r) {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(orientation.MatrixOf(r))
	return datatypes.JSON(data)
}

// idsToJSON converts scanner ids to datatypes.JSON for DB storage.
func idsToJSON(ids []int) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ids)
	return datatypes.JSON(data)
}

// CoreToScannerPlacement converts a resolved scanner to a GORM model.
// order is the position of s in the resolution order.
func CoreToScannerPlacement(s core.Scanner, order int) model.ScannerPlacement {
	return model.ScannerPlacement{
		ScannerID:      s.ID,
		ResolveOrder:   order,
		Position:       geo.FromPoint(s.Position),
		Rotation:       uint8(s.Rotation),
		RotationMatrix: rotationToJSON(s.Rotation),
		DetectionCount: len(s.Detections),
	}
}

// CoreToBeacon converts a beacon at discovery index seq to a GORM model.
func CoreToBeacon(p core.Point, seq int) model.Beacon {
	return model.Beacon{
		Seq:      seq,
		Position: geo.FromPoint(p),
		X:        p.X,
		Y:        p.Y,
		Z:        p.Z,
	}
}

// CoreToRun converts a core.Run and its map to a GORM model.Run with its
// scanners and beacons attached for a single Create.
func CoreToRun(r *core.Run) model.Run {
	out := model.Run{
		UUID:        r.ID,
		Source:      r.Source,
		MinOverlap:  r.MinOverlap,
		RootScanner: r.RootID,
		StartTime:   r.StartTime,
		DurationMs:  r.Duration.Milliseconds(),
		BeaconCount: r.BeaconCount,
		MaxDistance: r.MaxDistance,
		Stalled:     len(r.Unresolved) > 0,
		Unresolved:  idsToJSON(r.Unresolved),
	}
	if r.Map == nil {
		return out
	}

	out.ScannerCount = len(r.Map.Resolved)
	out.Scanners = make([]model.ScannerPlacement, 0, len(r.Map.Resolved))
	for i, s := range r.Map.Resolved {
		out.Scanners = append(out.Scanners, CoreToScannerPlacement(s, i))
	}

	beacons := r.Map.Beacons.Points()
	out.Beacons = make([]model.Beacon, len(beacons))
	for i, p := range beacons {
		out.Beacons[i] = CoreToBeacon(p, i)
	}
	return out
}
