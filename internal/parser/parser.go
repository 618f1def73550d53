// Package parser reads scanner reports in the text block format:
//
//	--- scanner 0 ---
//	404,-588,-901
//	528,-643,409
//
//	--- scanner 1 ---
//	...
//
// Each block starts with a header carrying the scanner id, followed by one
// detection per line. Two-component lines are planar and get z = 0.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/OCAP2/beaconmap/pkg/core"
)

var (
	// ErrInvalidHeader is returned for a header line without a scanner id.
	ErrInvalidHeader = errors.New("invalid scanner header")
	// ErrInvalidCoordinates is returned for a detection line that is not 2 or 3 integers.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrMissingHeader is returned when detections appear before any header.
	ErrMissingHeader = errors.New("detection outside of a scanner block")
)

const headerPrefix = "---"

// parseIntFromFloat parses a string that may be an integer ("32") or an
// integral float ("32.00") into int.
func parseIntFromFloat(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int", s)
	}
	return int(f), nil
}

// Parser converts report text into pending scanners.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(path string) ([]core.Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	scanners, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scanners, nil
}

// Parse reads every scanner block from r, in input order.
// Duplicate detections inside a block are dropped.
func (p *Parser) Parse(r io.Reader) ([]core.Scanner, error) {
	var (
		scanners []core.Scanner
		id       int
		dets     []core.Point
		open     bool
		lineNo   int
	)

	flush := func() {
		if open {
			scanners = append(scanners, core.NewScanner(id, dets))
		}
		dets = nil
		open = false
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, headerPrefix):
			flush()
			v, err := parseHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			id, open = v, true
		default:
			if !open {
				return nil, fmt.Errorf("line %d: %w", lineNo, ErrMissingHeader)
			}
			pt, err := parsePoint(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			dets = append(dets, pt)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	flush()

	p.logger.Debug("Parsed scanner report", "scanners", len(scanners), "lines", lineNo)
	return scanners, nil
}

// parseHeader returns the first integer token of a header line.
func parseHeader(line string) (int, error) {
	for _, tok := range strings.Fields(line) {
		if v, err := strconv.Atoi(tok); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, line)
}

func parsePoint(line string) (core.Point, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return core.Point{}, fmt.Errorf("%w: %q has %d components", ErrInvalidCoordinates, line, len(parts))
	}
	var v [3]int
	for i, s := range parts {
		n, err := parseIntFromFloat(strings.TrimSpace(s))
		if err != nil {
			return core.Point{}, fmt.Errorf("%w: %q: %v", ErrInvalidCoordinates, line, err)
		}
		v[i] = n
	}
	return core.Point{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Format writes scanners back in the report format, in the given order.
func Format(w io.Writer, scanners []core.Scanner) error {
	bw := bufio.NewWriter(w)
	for i, s := range scanners {
		if i > 0 {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "--- scanner %d ---\n", s.ID); err != nil {
			return err
		}
		for _, d := range s.Detections {
			if _, err := fmt.Fprintf(bw, "%s\n", d); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
