package corpus

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// ErrInvalidScenario is returned for scenario files Generate cannot use.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a corpus layout read from YAML:
//
//	seed: 7
//	scanners:
//	  - {id: 0, position: [0, 0, 0], rotation: 0}
//	  - {id: 1, position: [68, -1246, -43], rotation: 5}
//	groups:
//	  - {size: 12, viewers: [0, 1]}
type Scenario struct {
	Seed     int64             `yaml:"seed"`
	Scanners []scenarioScanner `yaml:"scanners"`
	Groups   []Group           `yaml:"groups"`
}

type scenarioScanner struct {
	ID       int    `yaml:"id"`
	Position [3]int `yaml:"position"`
	Rotation int    `yaml:"rotation"`
}

// FiveScannerScenario returns the five scanner layout as a scenario.
func FiveScannerScenario() Scenario {
	s := Scenario{Seed: 19, Groups: FiveScannerGroups}
	for _, p := range FiveScannerPlacements {
		s.Scanners = append(s.Scanners, scenarioScanner{
			ID:       p.ID,
			Position: [3]int{p.Position.X, p.Position.Y, p.Position.Z},
			Rotation: int(p.Rotation),
		})
	}
	return s
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Scenario{}, fmt.Errorf("%w: %s is empty", ErrInvalidScenario, path)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that the first scanner anchors the frame and that every
// group is seen by known scanners.
func (s Scenario) Validate() error {
	if len(s.Scanners) == 0 {
		return fmt.Errorf("%w: no scanners", ErrInvalidScenario)
	}
	if first := s.Scanners[0]; first.Position != [3]int{} || first.Rotation != 0 {
		return fmt.Errorf("%w: scanner %d must sit at the origin with rotation 0", ErrInvalidScenario, first.ID)
	}

	known := make(map[int]bool, len(s.Scanners))
	for _, sc := range s.Scanners {
		if known[sc.ID] {
			return fmt.Errorf("%w: duplicate scanner %d", ErrInvalidScenario, sc.ID)
		}
		if sc.Rotation < 0 || sc.Rotation >= orientation.Count {
			return fmt.Errorf("%w: scanner %d has rotation %d", ErrInvalidScenario, sc.ID, sc.Rotation)
		}
		known[sc.ID] = true
	}
	for i, g := range s.Groups {
		if g.Size <= 0 || len(g.Viewers) == 0 {
			return fmt.Errorf("%w: group %d is empty", ErrInvalidScenario, i)
		}
		for _, id := range g.Viewers {
			if !known[id] {
				return fmt.Errorf("%w: group %d names unknown scanner %d", ErrInvalidScenario, i, id)
			}
		}
	}
	return nil
}

// Placements converts the scanner entries.
func (s Scenario) Placements() []Placement {
	out := make([]Placement, len(s.Scanners))
	for i, sc := range s.Scanners {
		out[i] = Placement{
			ID:       sc.ID,
			Position: core.Point{X: sc.Position[0], Y: sc.Position[1], Z: sc.Position[2]},
			Rotation: core.Rotation(sc.Rotation),
		}
	}
	return out
}

// Generate builds the scenario's corpus with the given seed.
func (s Scenario) Generate(seed int64) Corpus {
	return Generate(seed, s.Placements(), s.Groups)
}
