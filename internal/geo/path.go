package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/beaconmap/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ResolutionPath links the resolved scanner positions, in the order they
// were resolved, into a LineString Z. Fewer than two scanners give an
// empty line.
func ResolutionPath(m *core.GlobalMap) geom.LineString {
	if m == nil || len(m.Resolved) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(m.Resolved)*3)
	for _, s := range m.Resolved {
		flat = append(flat, float64(s.Position.X), float64(s.Position.Y), float64(s.Position.Z))
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
}

// FeatureCollection renders the map as GeoJSON: one MultiPoint feature
// holding every beacon, one Point feature per resolved scanner and the
// resolution path.
func FeatureCollection(m *core.GlobalMap) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("feature collection: nil map")
	}

	fc := geom.GeoJSONFeatureCollection{
		{
			Geometry:   FromPoints(m.Beacons.Points()).AsGeometry(),
			ID:         "beacons",
			Properties: map[string]any{"kind": "beacons", "count": m.Beacons.Len()},
		},
	}
	for i, s := range m.Resolved {
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: FromPoint(s.Position).AsGeometry(),
			ID:       fmt.Sprintf("scanner-%d", s.ID),
			Properties: map[string]any{
				"kind":     "scanner",
				"scanner":  s.ID,
				"rotation": int(s.Rotation),
				"order":    i,
			},
		})
	}
	if path := ResolutionPath(m); !path.IsEmpty() {
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   path.AsGeometry(),
			ID:         "path",
			Properties: map[string]any{"kind": "path"},
		})
	}
	return json.Marshal(fc)
}
