// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/beaconmap/internal/geo"
	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// MapExport is the root JSON structure
type MapExport struct {
	RunID       string          `json:"runId"`
	Source      string          `json:"source"`
	MinOverlap  int             `json:"minOverlap"`
	RootScanner int             `json:"rootScanner"`
	StartTime   string          `json:"startTime"`
	DurationMs  int64           `json:"durationMs"`
	BeaconCount int             `json:"beaconCount"`
	MaxDistance int             `json:"maxDistance"`
	Scanners    []ScannerJSON   `json:"scanners"`
	Beacons     [][3]int        `json:"beacons"`
	Unresolved  []int           `json:"unresolved,omitempty"`
	GeoJSON     json.RawMessage `json:"geojson,omitempty"`
}

// ScannerJSON represents a resolved scanner
type ScannerJSON struct {
	ID       int       `json:"id"`
	Order    int       `json:"order"`
	Position [3]int    `json:"position"`
	Rotation int       `json:"rotation"`
	Matrix   [3][3]int `json:"matrix"`
}

func pointArray(p core.Point) [3]int {
	return [3]int{p.X, p.Y, p.Z}
}

// ExportFileName builds "<source>_<run>_<start>.json[.gz]".
func ExportFileName(r *core.Run, compress bool) string {
	source := strings.TrimSuffix(filepath.Base(r.Source), filepath.Ext(r.Source))
	if source == "" || source == "." {
		source = "run"
	}
	source = strings.ReplaceAll(source, " ", "_")
	source = strings.ReplaceAll(source, ":", "_")

	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}

	name := fmt.Sprintf("%s_%s_%s.json", source, id, r.StartTime.UTC().Format("20060102_150405"))
	if compress {
		name += ".gz"
	}
	return name
}

// exportJSON writes the run to a (optionally gzipped) JSON file
func (b *Backend) exportJSON(r *core.Run) error {
	outputPath := filepath.Join(b.cfg.OutputDir, ExportFileName(r, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := EncodeExport(f, r, b.cfg.CompressOutput); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}

	b.lastExportPath = outputPath
	return nil
}

func buildExport(r *core.Run) (MapExport, error) {
	export := MapExport{
		RunID:       r.ID,
		Source:      r.Source,
		MinOverlap:  r.MinOverlap,
		RootScanner: r.RootID,
		StartTime:   r.StartTime.UTC().Format(time.RFC3339),
		DurationMs:  r.Duration.Milliseconds(),
		BeaconCount: r.BeaconCount,
		MaxDistance: r.MaxDistance,
		Scanners:    make([]ScannerJSON, 0, len(r.Map.Resolved)),
		Beacons:     make([][3]int, 0, r.Map.Beacons.Len()),
	}

	for i, s := range r.Map.Resolved {
		export.Scanners = append(export.Scanners, ScannerJSON{
			ID:       s.ID,
			Order:    i,
			Position: pointArray(s.Position),
			Rotation: int(s.Rotation),
			Matrix:   orientation.MatrixOf(s.Rotation),
		})
	}
	for _, p := range r.Map.Beacons.Points() {
		export.Beacons = append(export.Beacons, pointArray(p))
	}
	export.Unresolved = append(export.Unresolved, r.Unresolved...)

	fc, err := geo.FeatureCollection(r.Map)
	if err != nil {
		return export, fmt.Errorf("build geojson: %w", err)
	}
	export.GeoJSON = fc
	return export, nil
}

// Run rebuilds the run from an export. Detections are not exported, so the
// scanners carry placement only.
func (e MapExport) Run() (*core.Run, error) {
	start, err := time.Parse(time.RFC3339, e.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", e.StartTime, err)
	}

	beacons := make([]core.Point, len(e.Beacons))
	for i, b := range e.Beacons {
		beacons[i] = core.Point{X: b[0], Y: b[1], Z: b[2]}
	}
	m := &core.GlobalMap{Beacons: core.NewPointSet(beacons...)}

	for _, s := range e.Scanners {
		if s.Rotation < 0 || s.Rotation >= orientation.Count {
			return nil, fmt.Errorf("scanner %d: invalid rotation %d", s.ID, s.Rotation)
		}
		rot := core.Rotation(s.Rotation)
		if orientation.MatrixOf(rot) != orientation.Matrix(s.Matrix) {
			return nil, fmt.Errorf("scanner %d: rotation %d does not match its matrix", s.ID, s.Rotation)
		}
		m.Resolved = append(m.Resolved, core.Scanner{
			ID:       s.ID,
			State:    core.ScannerResolved,
			Position: core.Point{X: s.Position[0], Y: s.Position[1], Z: s.Position[2]},
			Rotation: rot,
		})
	}

	return &core.Run{
		ID:          e.RunID,
		Source:      e.Source,
		MinOverlap:  e.MinOverlap,
		RootID:      e.RootScanner,
		StartTime:   start,
		Duration:    time.Duration(e.DurationMs) * time.Millisecond,
		Map:         m,
		BeaconCount: e.BeaconCount,
		MaxDistance: e.MaxDistance,
		Unresolved:  append([]int(nil), e.Unresolved...),
	}, nil
}

// EncodeExport writes the JSON export of r to w, gzipped when compress is set.
func EncodeExport(w io.Writer, r *core.Run, compress bool) error {
	export, err := buildExport(r)
	if err != nil {
		return err
	}

	if !compress {
		return json.NewEncoder(w).Encode(export)
	}
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(export); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// DecodeExport reads an export written by EncodeExport.
func DecodeExport(r io.Reader, compressed bool) (MapExport, error) {
	var export MapExport

	if compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode export: %w", err)
	}
	return export, nil
}

// ReadExport reads a file written by the memory backend, gzipped or not.
func ReadExport(path string) (MapExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return MapExport{}, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	return DecodeExport(f, strings.HasSuffix(path, ".gz"))
}
