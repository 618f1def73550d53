// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/internal/storage"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// Backend keeps runs in memory and exports each one to JSON
type Backend struct {
	cfg config.MemoryConfig

	runs  map[string]*core.Run
	order []string

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:  cfg,
		runs: make(map[string]*core.Run),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveRun stores the run and exports it. An empty OutputDir keeps the run
// in memory only.
func (b *Backend) SaveRun(r *core.Run) error {
	if r == nil || r.Map == nil {
		return fmt.Errorf("save run: nothing to save")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.runs[r.ID]; !ok {
		b.order = append(b.order, r.ID)
	}
	b.runs[r.ID] = r

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON(r)
}

// LoadRun returns a stored run.
func (b *Backend) LoadRun(id string) (*core.Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	return r, nil
}

// Runs returns the stored run ids in save order.
func (b *Backend) Runs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// GetExportedFilePath returns the path of the last JSON export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
