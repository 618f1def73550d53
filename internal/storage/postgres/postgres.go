// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with an internal queue and a background DB writer goroutine.
package postgres

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/internal/database"
	"github.com/OCAP2/beaconmap/internal/logging"
	"github.com/OCAP2/beaconmap/internal/queue"
	gormstorage "github.com/OCAP2/beaconmap/internal/storage/gorm"
	"github.com/OCAP2/beaconmap/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued runs are written.
const DefaultFlushInterval = time.Second

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB            *gorm.DB // optional; when nil Init connects with Config
	Config        config.DBConfig
	LogManager    *logging.SlogManager
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend with queued writes to PostgreSQL.
type Backend struct {
	*gormstorage.Backend

	deps     Dependencies
	manager  *database.Manager
	pending  *queue.Queue[*core.Run]
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex // serializes flushes
	errs    []error
	started bool
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		pending: queue.New[*core.Run](),
	}
}

// Init connects if no DB was injected, migrates the schema and starts the
// DB writer goroutine.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		b.manager = database.NewManager(b.deps.Logger)
		var err error
		db, err = b.manager.GetPostgresDB(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.manager.DB = db
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.manager.SqlDB = sqlDB
		b.manager.IsValid = true
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: b.deps.LogManager})
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.started = true
	b.startDBWriter()
	return nil
}

// SaveRun queues the run for the writer goroutine.
func (b *Backend) SaveRun(r *core.Run) error {
	if !b.started {
		return gormstorage.ErrNoDatabase
	}
	if r == nil {
		return fmt.Errorf("save run: nothing to save")
	}
	b.pending.Push(r)
	return nil
}

// LoadRun flushes queued runs and reads the requested one back.
func (b *Backend) LoadRun(id string) (*core.Run, error) {
	if !b.started {
		return nil, gormstorage.ErrNoDatabase
	}
	b.flush()
	return b.Backend.LoadRun(id)
}

// Pending returns the number of runs waiting to be written.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// startDBWriter starts the background goroutine that periodically drains the queue into the DB.
func (b *Backend) startDBWriter() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.flush()
			}
		}
	}()
}

func (b *Backend) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.pending.Drain() {
		if err := b.Backend.SaveRun(r); err != nil {
			b.errs = append(b.errs, err)
		}
	}
}

// Close stops the writer, flushes what is left and closes a connection
// opened by Init. Write errors collected since Init are returned.
func (b *Backend) Close() error {
	if !b.started {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.flush()
	b.started = false

	errs := append([]error(nil), b.errs...)
	b.errs = nil
	errs = append(errs, b.Backend.Close())
	if b.manager != nil {
		errs = append(errs, b.manager.Close())
	}
	return errors.Join(errs...)
}
