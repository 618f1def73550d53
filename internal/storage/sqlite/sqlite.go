// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the only SQLite-specific concerns are
// creating the in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/beaconmap/internal/database"
	"github.com/OCAP2/beaconmap/internal/logging"
	gormstorage "github.com/OCAP2/beaconmap/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	manager  *database.Manager
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend over an in-memory database.
func New(cfg Config, logManager *logging.SlogManager, zl zerolog.Logger) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	manager := database.NewManager(zl)
	if err := manager.ConnectSqlite(""); err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	manager.SqliteFilePath = cfg.DumpPath

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         manager.DB,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		manager:  manager,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()

	var dumpErr error
	if b.cfg.DumpPath != "" {
		dumpErr = b.Dump()
	}
	return errors.Join(dumpErr, b.Backend.Close(), b.manager.Close())
}

// Dump writes the in-memory database to DumpPath.
func (b *Backend) Dump() error {
	return b.manager.DumpMemoryToDisk()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
