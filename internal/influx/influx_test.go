package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/pkg/core"
)

func sampleRun() *core.Run {
	m := core.NewGlobalMap(core.Scanner{ID: 0, Detections: []core.Point{{X: 1, Y: 2, Z: 3}}})
	m.Merge(core.Scanner{ID: 1, Position: core.Point{X: 68, Y: -1246, Z: -43}}, []core.Point{{X: 4, Y: 5, Z: 6}})
	return &core.Run{
		ID:          "8f5cbb0e-0000-4000-8000-000000000001",
		Source:      "five.txt",
		MinOverlap:  12,
		StartTime:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Map:         m,
		BeaconCount: 2,
		MaxDistance: 1357,
		Unresolved:  []int{4},
	}
}

func TestRunPoint(t *testing.T) {
	p := RunPoint(sampleRun())

	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"source": "five.txt", "root": "0", "stalled": "true"}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(2), fields["beacons"])
	assert.Equal(t, int64(2), fields["scanners"])
	assert.Equal(t, int64(1), fields["unresolved"])
	assert.Equal(t, int64(1357), fields["max_distance"])
	assert.Equal(t, int64(1500), fields["duration_ms"])
	assert.Equal(t, "8f5cbb0e-0000-4000-8000-000000000001", fields["run_id"])
}

func TestRunPoint_NilMap(t *testing.T) {
	p := RunPoint(&core.Run{ID: "x"})
	for _, f := range p.FieldList() {
		if f.Key == "scanners" {
			assert.Equal(t, int64(0), f.Value)
		}
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.Error(t, m.WriteRun(sampleRun()))
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Token:    "token",
		Org:      "org",
		Bucket:   "registration",
	}, zerolog.Nop(), backup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.WriteRun(sampleRun()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.HasPrefix(line, "registration,"), "got %q", line)
	assert.Contains(t, line, "source=five.txt")
	assert.Contains(t, line, "beacons=2i")
}

func TestConnect_UnreachableWithoutBackupPath(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: true, Host: "127.0.0.1", Port: "1", Protocol: "http"}, zerolog.Nop(), "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, m.Connect(ctx))
	assert.NoError(t, m.Close())
}
