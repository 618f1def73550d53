package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrStalledRegistration is matched by every stall error: a full pass over
	// the pending scanners resolved none of them.
	ErrStalledRegistration = errors.New("registration stalled")

	// ErrNoScanners is returned when Run is given nothing to register.
	ErrNoScanners = errors.New("no scanners to register")

	// ErrDuplicateScanner is returned when two scanners share an id.
	ErrDuplicateScanner = errors.New("duplicate scanner id")

	// ErrUnknownRoot is returned when the configured root id is not in the input.
	ErrUnknownRoot = errors.New("root scanner not found")

	// ErrInvalidOverlap is returned for a minimum overlap below one.
	ErrInvalidOverlap = errors.New("minimum overlap must be at least 1")
)

// StalledRegistrationError names the scanners that could not be placed.
type StalledRegistrationError struct {
	Unresolved []int // sorted scanner ids
	Passes     int
	Attempts   int
}

func newStalledError(ids []int, passes, attempts int) *StalledRegistrationError {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	return &StalledRegistrationError{Unresolved: sorted, Passes: passes, Attempts: attempts}
}

func (e *StalledRegistrationError) Error() string {
	ids := make([]string, len(e.Unresolved))
	for i, id := range e.Unresolved {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s after %d passes: unresolved scanners [%s]",
		ErrStalledRegistration, e.Passes, strings.Join(ids, ", "))
}

func (e *StalledRegistrationError) Unwrap() error {
	return ErrStalledRegistration
}
