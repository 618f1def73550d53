// pkg/core/scanner.go
package core

import "fmt"

// Rotation labels one of the 24 proper rotations of the integer lattice.
// The matrices live in internal/orientation; 0 is the identity.
type Rotation uint8

// IdentityRotation leaves every point unchanged.
const IdentityRotation Rotation = 0

// ScannerState is the registration state of a scanner.
type ScannerState uint8

const (
	// ScannerPending means no alignment into the global frame is known yet.
	ScannerPending ScannerState = iota
	// ScannerResolved is terminal: position and rotation are fixed.
	ScannerResolved
)

// String returns a readable name for logs.
func (s ScannerState) String() string {
	switch s {
	case ScannerPending:
		return "pending"
	case ScannerResolved:
		return "resolved"
	default:
		return fmt.Sprintf("ScannerState(%d)", uint8(s))
	}
}

// Scanner holds one sensor's local detections and, once resolved,
// its position and orientation in the global frame.
type Scanner struct {
	ID         int
	Detections []Point // local frame, unique
	State      ScannerState
	Position   Point    // valid only when resolved
	Rotation   Rotation // valid only when resolved
}

// NewScanner builds a pending scanner. Duplicate detections are dropped.
func NewScanner(id int, detections []Point) Scanner {
	return Scanner{
		ID:         id,
		Detections: Unique(detections),
		State:      ScannerPending,
	}
}

// Resolved reports whether the scanner has been placed in the global frame.
func (s Scanner) Resolved() bool {
	return s.State == ScannerResolved
}
