package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
seed: 7
scanners:
  - {id: 0, position: [0, 0, 0], rotation: 0}
  - {id: 1, position: [500, 0, 0], rotation: 11}
groups:
  - {size: 12, viewers: [0, 1]}
  - {size: 3, viewers: [1]}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.Seed)
	require.Len(t, s.Scanners, 2)
	assert.Equal(t, [3]int{500, 0, 0}, s.Scanners[1].Position)
	assert.Equal(t, []Group{{Size: 12, Viewers: []int{0, 1}}, {Size: 3, Viewers: []int{1}}}, s.Groups)

	c := s.Generate(s.Seed)
	assert.Len(t, c.Beacons, 15)
	require.Len(t, c.Scanners, 2)
	assert.Len(t, c.Scanners[0].Detections, 12)
	assert.Len(t, c.Scanners[1].Detections, 15)
}

func TestLoadScenario_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":           "   \n",
		"no scanners":     "seed: 1\n",
		"root off origin": "scanners:\n  - {id: 0, position: [1, 0, 0], rotation: 0}\n",
		"root rotated":    "scanners:\n  - {id: 0, position: [0, 0, 0], rotation: 3}\n",
		"bad rotation":    "scanners:\n  - {id: 0, position: [0, 0, 0]}\n  - {id: 1, position: [0, 0, 0], rotation: 24}\n",
		"duplicate":       "scanners:\n  - {id: 0, position: [0, 0, 0]}\n  - {id: 0, position: [5, 0, 0]}\n",
		"unknown viewer":  "scanners:\n  - {id: 0, position: [0, 0, 0]}\ngroups:\n  - {size: 2, viewers: [9]}\n",
		"empty group":     "scanners:\n  - {id: 0, position: [0, 0, 0]}\ngroups:\n  - {size: 0, viewers: [0]}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, body))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestLoadScenario_Malformed(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "scanners: [oops"))
	assert.Error(t, err)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFiveScannerScenario_MatchesCorpus(t *testing.T) {
	s := FiveScannerScenario()
	require.NoError(t, s.Validate())

	want := FiveScanners()
	got := s.Generate(s.Seed)
	if diff := cmp.Diff(want.Beacons, got.Beacons); diff != "" {
		t.Errorf("beacons differ (-want +got):\n%s", diff)
	}
	assert.Equal(t, want.MaxDistance(), got.MaxDistance())
}
