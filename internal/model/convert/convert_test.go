package convert

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/OCAP2/beaconmap/internal/corpus"
	"github.com/OCAP2/beaconmap/internal/engine"
	"github.com/OCAP2/beaconmap/internal/geo"
	"github.com/OCAP2/beaconmap/internal/model"
	"github.com/OCAP2/beaconmap/pkg/core"
)

func solvedRun(t *testing.T) *core.Run {
	t.Helper()
	e, err := engine.New()
	require.NoError(t, err)
	m, err := e.Run(context.Background(), corpus.FiveScanners().Clone())
	require.NoError(t, err)
	return &core.Run{
		ID:          "3f1c2d4e-0000-4000-8000-000000000001",
		Source:      "five.txt",
		MinOverlap:  12,
		RootID:      0,
		StartTime:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Map:         m,
		BeaconCount: m.Beacons.Len(),
		MaxDistance: 3621,
	}
}

func TestRotationToJSON(t *testing.T) {
	assert.JSONEq(t, `[[1,0,0],[0,1,0],[0,0,1]]`, string(rotationToJSON(core.IdentityRotation)))
	assert.Equal(t, datatypes.JSON("[]"), rotationToJSON(core.Rotation(99)))
}

func TestCoreToScannerPlacement(t *testing.T) {
	s := core.NewScanner(4, []core.Point{{X: 1}, {X: 2}})
	s.State = core.ScannerResolved
	s.Position = core.Point{X: -20, Y: -1133, Z: 1061}
	s.Rotation = 9

	got := CoreToScannerPlacement(s, 3)
	assert.Equal(t, 4, got.ScannerID)
	assert.Equal(t, 3, got.ResolveOrder)
	assert.Equal(t, uint8(9), got.Rotation)
	assert.Equal(t, 2, got.DetectionCount)

	pos, err := geo.ToPoint(got.Position)
	require.NoError(t, err)
	assert.Equal(t, s.Position, pos)
}

func TestCoreToRun(t *testing.T) {
	r := solvedRun(t)

	got := CoreToRun(r)
	assert.Equal(t, r.ID, got.UUID)
	assert.Equal(t, "five.txt", got.Source)
	assert.Equal(t, int64(1500), got.DurationMs)
	assert.Equal(t, 79, got.BeaconCount)
	assert.Equal(t, 5, got.ScannerCount)
	assert.Equal(t, 3621, got.MaxDistance)
	require.Len(t, got.Scanners, 5)
	require.Len(t, got.Beacons, 79)

	assert.Equal(t, 0, got.Scanners[0].ScannerID)
	for i, b := range got.Beacons {
		assert.Equal(t, i, b.Seq)
	}
}

func TestCoreToRun_NilMap(t *testing.T) {
	got := CoreToRun(&core.Run{ID: "x"})
	assert.Equal(t, "x", got.UUID)
	assert.Empty(t, got.Scanners)
	assert.Empty(t, got.Beacons)
}

func TestRunToCore_RoundTrip(t *testing.T) {
	r := solvedRun(t)

	back, err := RunToCore(CoreToRun(r))
	require.NoError(t, err)

	assert.Equal(t, r.ID, back.ID)
	assert.Equal(t, r.Duration, back.Duration)
	assert.Equal(t, r.StartTime, back.StartTime)
	assert.Equal(t, r.Map.Beacons.Points(), back.Map.Beacons.Points())

	require.Len(t, back.Map.Resolved, len(r.Map.Resolved))
	for i, s := range r.Map.Resolved {
		got := back.Map.Resolved[i]
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.Position, got.Position)
		assert.Equal(t, s.Rotation, got.Rotation)
		assert.True(t, got.Resolved())
	}
}

func TestRunToCore_SortsByOrder(t *testing.T) {
	r := CoreToRun(solvedRun(t))
	want, err := RunToCore(r)
	require.NoError(t, err)

	// storage may hand rows back in any order
	for i, j := 0, len(r.Scanners)-1; i < j; i, j = i+1, j-1 {
		r.Scanners[i], r.Scanners[j] = r.Scanners[j], r.Scanners[i]
	}
	for i, j := 0, len(r.Beacons)-1; i < j; i, j = i+1, j-1 {
		r.Beacons[i], r.Beacons[j] = r.Beacons[j], r.Beacons[i]
	}
	got, err := RunToCore(r)
	require.NoError(t, err)

	if diff := cmp.Diff(want.Map.Beacons.Points(), got.Map.Beacons.Points()); diff != "" {
		t.Errorf("beacon order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Map.Resolved, got.Map.Resolved); diff != "" {
		t.Errorf("scanner order mismatch (-want +got):\n%s", diff)
	}
}

func TestScannerPlacementToCore_Errors(t *testing.T) {
	valid := CoreToScannerPlacement(core.Scanner{ID: 1, Rotation: 5}, 1)

	bad := valid
	bad.Rotation = 30
	_, err := ScannerPlacementToCore(bad)
	assert.Error(t, err)

	bad = valid
	bad.RotationMatrix = rotationToJSON(6)
	_, err = ScannerPlacementToCore(bad)
	assert.ErrorIs(t, err, ErrRotationMismatch)

	bad = valid
	bad.RotationMatrix = datatypes.JSON(`{"not":"a matrix"}`)
	_, err = ScannerPlacementToCore(bad)
	assert.Error(t, err)

	bad = valid
	bad.Position = model.ScannerPlacement{}.Position
	_, err = ScannerPlacementToCore(bad)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestRun_Unresolved(t *testing.T) {
	r := solvedRun(t)
	r.Unresolved = []int{2, 3}

	m := CoreToRun(r)
	assert.True(t, m.Stalled)
	assert.JSONEq(t, `[2,3]`, string(m.Unresolved))

	back, err := RunToCore(m)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, back.Unresolved)

	clean := CoreToRun(solvedRun(t))
	assert.False(t, clean.Stalled)
	assert.Equal(t, datatypes.JSON("[]"), clean.Unresolved)

	back, err = RunToCore(clean)
	require.NoError(t, err)
	assert.Empty(t, back.Unresolved)
}

func TestScannerPlacementToCore_NoMatrix(t *testing.T) {
	p := CoreToScannerPlacement(core.Scanner{ID: 2, Rotation: 13, Position: core.Point{X: 1}}, 2)
	p.RotationMatrix = nil

	s, err := ScannerPlacementToCore(p)
	require.NoError(t, err)
	assert.Equal(t, core.Rotation(13), s.Rotation)
}
