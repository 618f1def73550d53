package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanner_DropsDuplicateDetections(t *testing.T) {
	s := NewScanner(4, []Point{{X: 1}, {X: 1}, {Y: 1}})

	assert.Equal(t, 4, s.ID)
	assert.Len(t, s.Detections, 2)
	assert.Equal(t, ScannerPending, s.State)
	assert.False(t, s.Resolved())
}

func TestScannerState_String(t *testing.T) {
	assert.Equal(t, "pending", ScannerPending.String())
	assert.Equal(t, "resolved", ScannerResolved.String())
	assert.Equal(t, "ScannerState(7)", ScannerState(7).String())
}

func TestGlobalMap_SeededWithRoot(t *testing.T) {
	root := NewScanner(0, []Point{{X: 1}, {X: 2}})
	root.Position = Point{X: 50}
	root.Rotation = 5

	m := NewGlobalMap(root)

	require.Len(t, m.Resolved, 1)
	assert.True(t, m.Resolved[0].Resolved())
	assert.Equal(t, Point{}, m.Resolved[0].Position)
	assert.Equal(t, IdentityRotation, m.Resolved[0].Rotation)
	assert.Equal(t, 2, m.Beacons.Len())
}

func TestGlobalMap_MergeUnionsBeacons(t *testing.T) {
	m := NewGlobalMap(NewScanner(0, []Point{{X: 1}, {X: 2}}))

	next := NewScanner(1, []Point{{X: 10}, {X: 11}, {X: 12}})
	next.Position = Point{X: -9}
	next.Rotation = 3

	added := m.Merge(next, []Point{{X: 1}, {X: 2}, {X: 3}})

	assert.Equal(t, 1, added)
	assert.Equal(t, 3, m.Beacons.Len())

	got, ok := m.Scanner(1)
	require.True(t, ok)
	assert.True(t, got.Resolved())
	assert.Equal(t, Point{X: -9}, got.Position)
	assert.Equal(t, Rotation(3), got.Rotation)

	_, ok = m.Scanner(42)
	assert.False(t, ok)
}
