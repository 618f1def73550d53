// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/OCAP2/beaconmap/pkg/core"
)

// ErrRunNotFound is returned by LoadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveRun persists a finished (or stalled) registration run.
	SaveRun(r *core.Run) error
}

// Loader is an optional interface for backends that can read runs back.
type Loader interface {
	LoadRun(id string) (*core.Run, error)
}

// Exportable is an optional interface for backends that write files.
type Exportable interface {
	GetExportedFilePath() string
}
