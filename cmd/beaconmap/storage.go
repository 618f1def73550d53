package main

import (
	"context"
	"fmt"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/internal/storage"
	"github.com/OCAP2/beaconmap/internal/storage/memory"
	pgstorage "github.com/OCAP2/beaconmap/internal/storage/postgres"
	s3storage "github.com/OCAP2/beaconmap/internal/storage/s3"
	sqlitestorage "github.com/OCAP2/beaconmap/internal/storage/sqlite"
)

// initStorage creates and initializes the configured backend. A nil
// backend means results are not persisted.
func initStorage() (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if backend == nil {
		return nil, nil
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "none":
		Logger.Info("Storage disabled")
		return nil, nil

	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			Config:     config.GetDBConfig(),
			LogManager: SlogManager,
			Logger:     ManagerLogger,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.Path,
		}, SlogManager, ManagerLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.Path)
		return backend, nil

	case "s3":
		backend, err := s3storage.New(context.Background(), storageCfg.S3, SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		Logger.Info("S3 storage backend initialized", "bucket", storageCfg.S3.Bucket)
		return backend, nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
