// Package gormstorage implements the storage.Backend interface on top of an
// injected *gorm.DB. The sqlite and postgres backends wrap it and only own
// the connection.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/OCAP2/beaconmap/internal/logging"
	"github.com/OCAP2/beaconmap/internal/model"
	"github.com/OCAP2/beaconmap/internal/model/convert"
	"github.com/OCAP2/beaconmap/internal/storage"
	"github.com/OCAP2/beaconmap/pkg/core"

	"gorm.io/gorm"
)

// ErrNoDatabase is returned when the backend is used without a connection.
var ErrNoDatabase = errors.New("no database connection")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend with GORM.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true
	return nil
}

func (b *Backend) setupDB() error {
	log := b.deps.LogManager

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close marks the backend unusable. The connection belongs to the caller.
func (b *Backend) Close() error {
	b.dbReady = false
	return nil
}

// SaveRun inserts the run with its scanners and beacons in one transaction.
func (b *Backend) SaveRun(r *core.Run) error {
	if !b.dbReady {
		return ErrNoDatabase
	}
	if r == nil {
		return fmt.Errorf("save run: nothing to save")
	}

	row := convert.CoreToRun(r)
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		b.deps.LogManager.WriteLog("SaveRun", fmt.Sprintf("Failed to insert run %s: %v", r.ID, err), "ERROR")
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}

	b.deps.LogManager.WriteLog("SaveRun",
		fmt.Sprintf("Saved run %s: %d scanners, %d beacons", r.ID, len(row.Scanners), len(row.Beacons)), "DEBUG")
	return nil
}

// LoadRun reads a run back with its scanners and beacons.
func (b *Backend) LoadRun(id string) (*core.Run, error) {
	if !b.dbReady {
		return nil, ErrNoDatabase
	}

	var row model.Run
	err := b.deps.DB.
		Preload("Scanners").
		Preload("Beacons").
		Where("uuid = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return convert.RunToCore(row)
}

// CountRuns returns the number of stored runs.
func (b *Backend) CountRuns() (int64, error) {
	if !b.dbReady {
		return 0, ErrNoDatabase
	}
	var n int64
	err := b.deps.DB.Model(&model.Run{}).Count(&n).Error
	return n, err
}
