package parser

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/beaconmap/internal/corpus"
	"github.com/OCAP2/beaconmap/pkg/core"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestNewParser(t *testing.T) {
	require.NotNil(t, NewParser(nil))
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"negative", "-588", -588, false},
		{"float with decimals", "32.00", 32, false},
		{"negative float", "-5.0", -5, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse_Planar(t *testing.T) {
	input := `--- scanner 0 ---
0,2
4,1
3,3

--- scanner 1 ---
-1,-1
-5,0
-2,1
`
	got, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].ID)
	assert.Equal(t, []core.Point{{X: 0, Y: 2}, {X: 4, Y: 1}, {X: 3, Y: 3}}, got[0].Detections)
	assert.Equal(t, 1, got[1].ID)
	assert.Equal(t, []core.Point{{X: -1, Y: -1}, {X: -5}, {X: -2, Y: 1}}, got[1].Detections)
	for _, s := range got {
		assert.Equal(t, core.ScannerPending, s.State)
	}
}

func TestParse_ThreeComponents(t *testing.T) {
	input := "--- scanner 7 ---\n404,-588,-901\n528,-643,409\n"
	got, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].ID)
	assert.Equal(t, []core.Point{{X: 404, Y: -588, Z: -901}, {X: 528, Y: -643, Z: 409}}, got[0].Detections)
}

func TestParse_DropsDuplicates(t *testing.T) {
	input := "--- scanner 0 ---\n1,2,3\n1,2,3\n4,5,6\n"
	got, err := newTestParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, got[0].Detections, 2)
}

func TestParse_EmptyBlocks(t *testing.T) {
	got, err := newTestParser().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = newTestParser().Parse(strings.NewReader("--- scanner 3 ---\n\n--- scanner 4 ---\n1,1\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Detections)
	assert.Len(t, got[1].Detections, 1)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"header without id", "--- scanner ---\n1,2\n", ErrInvalidHeader},
		{"one component", "--- scanner 0 ---\n12\n", ErrInvalidCoordinates},
		{"four components", "--- scanner 0 ---\n1,2,3,4\n", ErrInvalidCoordinates},
		{"non numeric", "--- scanner 0 ---\n1,x,3\n", ErrInvalidCoordinates},
		{"fractional", "--- scanner 0 ---\n1,2.5,3\n", ErrInvalidCoordinates},
		{"no header", "1,2,3\n", ErrMissingHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser().Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_ErrorLineNumber(t *testing.T) {
	_, err := newTestParser().Parse(strings.NewReader("--- scanner 0 ---\n1,2,3\n\nbad\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func TestParse_CorpusReport(t *testing.T) {
	c := corpus.FiveScanners()

	got, err := newTestParser().Parse(strings.NewReader(c.Report()))
	require.NoError(t, err)

	if diff := cmp.Diff(c.Scanners, got); diff != "" {
		t.Errorf("parsed scanners mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	c := corpus.FiveScanners()

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, c.Scanners))
	assert.Equal(t, c.Report(), buf.String())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("--- scanner 0 ---\n1,2,3\n"), 0o644))

	got, err := newTestParser().ParseFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = newTestParser().ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("1,2\n"), 0o644))
	_, err = newTestParser().ParseFile(bad)
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestParseFile_FiveScannerReport(t *testing.T) {
	got, err := NewParser(nil).ParseFile(filepath.Join("testdata", "five_scanners.txt"))
	require.NoError(t, err)
	require.Len(t, got, 5)

	counts := make([]int, len(got))
	for i, s := range got {
		assert.Equal(t, i, s.ID)
		counts[i] = len(s.Detections)
	}
	assert.Equal(t, []int{25, 25, 26, 25, 26}, counts)
	assert.Equal(t, core.Point{X: 404, Y: -588, Z: -901}, got[0].Detections[0])
	assert.Equal(t, core.Point{X: 30, Y: -46, Z: -14}, got[4].Detections[25])
}
