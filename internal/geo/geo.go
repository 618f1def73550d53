package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/beaconmap/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// GEO POINTS
// Lattice points are stored as XYZ geometries in the root scanner's frame. No SRID is set: the frame is local, not geodetic.
// Geometry data is stored in the WKB format, which is a binary representation of the geometry data.

// ErrInvalidCoordinates is returned when a geometry does not hold integer XYZ coordinates
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// FromPoint converts a lattice point into an XYZ geometry point.
func FromPoint(p core.Point) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: float64(p.X), Y: float64(p.Y)},
			Z:    float64(p.Z),
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
}

// ToPoint converts a geometry point back to a lattice point. Empty points and
// non-integral coordinates are rejected. A missing Z is read as 0.
func ToPoint(g geom.Point) (core.Point, error) {
	c, ok := g.Coordinates()
	if !ok {
		return core.Point{}, fmt.Errorf("%w: empty point", ErrInvalidCoordinates)
	}
	x, errX := toInt(c.X)
	y, errY := toInt(c.Y)
	z, errZ := toInt(c.Z)
	if err := errors.Join(errX, errY, errZ); err != nil {
		return core.Point{}, err
	}
	return core.Point{X: x, Y: y, Z: z}, nil
}

func toInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidCoordinates, f)
	}
	return int(f), nil
}

// FromPoints converts lattice points into a MultiPoint Z, preserving order.
func FromPoints(pts []core.Point) geom.MultiPoint {
	gs := make([]geom.Point, len(pts))
	for i, p := range pts {
		gs[i] = FromPoint(p)
	}
	return geom.NewMultiPoint(gs)
}

// ToPoints converts a MultiPoint back into lattice points.
func ToPoints(mp geom.MultiPoint) ([]core.Point, error) {
	out := make([]core.Point, 0, mp.NumPoints())
	for i := 0; i < mp.NumPoints(); i++ {
		p, err := ToPoint(mp.PointN(i))
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// PointsFromWKT parses a POINT or MULTIPOINT in WKT form.
func PointsFromWKT(wkt string) ([]core.Point, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("parse wkt: %w", err)
	}
	if p, ok := g.AsPoint(); ok {
		pt, err := ToPoint(p)
		if err != nil {
			return nil, err
		}
		return []core.Point{pt}, nil
	}
	if mp, ok := g.AsMultiPoint(); ok {
		return ToPoints(mp)
	}
	return nil, fmt.Errorf("%w: unsupported geometry type %s", ErrInvalidCoordinates, g.Type())
}
