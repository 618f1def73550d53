package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/internal/engine"
	"github.com/OCAP2/beaconmap/internal/influx"
	"github.com/OCAP2/beaconmap/internal/logging"
	"github.com/OCAP2/beaconmap/internal/metrics"
	"github.com/OCAP2/beaconmap/internal/storage"
	"github.com/OCAP2/beaconmap/internal/summary"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// solver registers scanner sets and hands the results to storage and
// metrics. backend, reporter and recorder may be nil.
type solver struct {
	backend  storage.Backend
	reporter *influx.Manager
	recorder *metrics.Recorder
	out      io.Writer
}

func engineOptions(cfg config.RegistrationConfig) []engine.Option {
	opts := []engine.Option{
		engine.WithMinOverlap(cfg.MinOverlap),
		engine.WithWorkers(cfg.Workers),
		engine.WithLogger(logging.NewZerologAdapter(ManagerLogger)),
	}
	if cfg.RootScanner >= 0 {
		opts = append(opts, engine.WithRoot(cfg.RootScanner))
	}
	return opts
}

// solve registers scanners read from source. A stalled registration still
// persists and prints the partial map before its error is returned.
func (s *solver) solve(ctx context.Context, source string, scanners []core.Scanner) (*core.Run, error) {
	regCfg := config.GetRegistrationConfig()
	e, err := engine.New(engineOptions(regCfg)...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	Logger.Info("Registering scanners", "source", source, "scanners", len(scanners), "minOverlap", e.MinOverlap())
	m, runErr := e.Run(ctx, scanners)

	var stalled *engine.StalledRegistrationError
	if runErr != nil && !errors.As(runErr, &stalled) {
		return nil, runErr
	}

	sum := summary.New(m)
	dist, err := sum.MaxScannerDistance()
	if err != nil && !errors.Is(err, summary.ErrInsufficientData) {
		return nil, err
	}

	r := &core.Run{
		ID:          uuid.NewString(),
		Source:      source,
		MinOverlap:  e.MinOverlap(),
		RootID:      m.Resolved[0].ID,
		StartTime:   start.UTC(),
		Duration:    time.Since(start),
		Map:         m,
		BeaconCount: sum.BeaconCount(),
		MaxDistance: dist,
	}
	if stalled != nil {
		r.Unresolved = stalled.Unresolved
	}

	Logger.Info("Registration finished",
		"run", r.ID, "beacons", r.BeaconCount, "scanners", sum.ScannerCount(),
		"maxDistance", r.MaxDistance, "unresolved", len(r.Unresolved), "duration", r.Duration)

	if err := s.persist(r); err != nil {
		return r, err
	}
	if err := s.print(r, sum.ScannerCount()); err != nil {
		return r, err
	}
	return r, runErr
}

func (s *solver) persist(r *core.Run) error {
	if s.backend != nil {
		if err := s.backend.SaveRun(r); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		if ex, ok := s.backend.(storage.Exportable); ok && ex.GetExportedFilePath() != "" {
			Logger.Info("Exported map", "path", ex.GetExportedFilePath())
		}
	}
	if s.recorder != nil {
		s.recorder.Observe(r)
	}
	if s.reporter != nil {
		if err := s.reporter.WriteRun(r); err != nil {
			Logger.Warn("Failed to report run", "run", r.ID, "error", err)
		}
	}
	return nil
}

func (s *solver) print(r *core.Run, scanners int) error {
	_, err := fmt.Fprintf(s.out, "%s\n  run:          %s\n  scanners:     %d\n  beacons:      %d\n  max distance: %d\n",
		r.Source, r.ID, scanners, r.BeaconCount, r.MaxDistance)
	if err == nil && len(r.Unresolved) > 0 {
		_, err = fmt.Fprintf(s.out, "  unresolved:   %v\n", r.Unresolved)
	}
	return err
}
