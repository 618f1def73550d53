// Command beaconmap registers scanner reports into one global beacon map.
//
//	beaconmap solve <report>...                register each report, print the summary and persist the run
//	beaconmap demo [seed] [scenario.yaml]      register a generated corpus
//	beaconmap generate [seed] [scenario.yaml]  print a generated corpus as a report
//	beaconmap rotations                        print the 24 rotation matrices
//	beaconmap version
//
// Settings are read from beaconmap.cfg.json in $BEACONMAP_CONFIG_DIR, or the
// working directory when unset.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/internal/corpus"
	"github.com/OCAP2/beaconmap/internal/influx"
	"github.com/OCAP2/beaconmap/internal/logging"
	"github.com/OCAP2/beaconmap/internal/metrics"
	"github.com/OCAP2/beaconmap/internal/orientation"
	"github.com/OCAP2/beaconmap/internal/parser"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "beaconmap"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// ManagerLogger is handed to the database and influx managers and the engine
	ManagerLogger zerolog.Logger = zerolog.Nop()

	SessionStartTime time.Time = time.Now()

	logFile *os.File
)

var errUsage = errors.New("usage: beaconmap solve <report>... | demo [seed] [scenario.yaml] | generate [seed] [scenario.yaml] | rotations | version")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch strings.ToLower(args[0]) {
	case "version":
		_, err := fmt.Fprintf(out, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return err
	case "rotations":
		return printRotations(out)
	case "generate":
		c, _, err := corpusArgs(args[1:])
		if err != nil {
			return err
		}
		return parser.Format(out, c.Scanners)
	case "solve", "demo":
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}

	configDir := os.Getenv("BEACONMAP_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	if err := config.Load(configDir); err != nil {
		return err
	}
	if err := setupLogging(); err != nil {
		return err
	}
	defer closeLogging()

	backend, err := initStorage()
	if err != nil {
		return err
	}
	if backend != nil {
		defer func() {
			if err := backend.Close(); err != nil {
				Logger.Error("Failed to close storage backend", "error", err)
			}
		}()
	}

	reporter := initInflux(ctx)
	if reporter != nil {
		defer func() {
			if err := reporter.Close(); err != nil {
				Logger.Error("Failed to close influx reporter", "error", err)
			}
		}()
	}

	s := &solver{backend: backend, reporter: reporter, out: out}
	if path := config.GetMetricsConfig().TextfilePath; path != "" {
		s.recorder = metrics.New()
		defer func() {
			if err := s.recorder.WriteTextfile(path); err != nil {
				Logger.Error("Failed to write metrics", "error", err)
			}
		}()
	}

	if strings.ToLower(args[0]) == "demo" {
		c, name, err := corpusArgs(args[1:])
		if err != nil {
			return err
		}
		_, err = s.solve(ctx, name, c.Clone())
		return err
	}

	if len(args) < 2 {
		return fmt.Errorf("solve: no report given: %w", errUsage)
	}
	p := parser.NewParser(Logger)
	var errs []error
	for _, path := range args[1:] {
		scanners, err := p.ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.solve(ctx, filepath.Base(path), scanners); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// corpusArgs reads the optional seed and scenario file of demo and generate.
// Without a scenario the five scanner layout is used; without a seed the
// scenario's own.
func corpusArgs(args []string) (corpus.Corpus, string, error) {
	scenario := corpus.FiveScannerScenario()
	name := "demo"
	var seed *int64

	for _, arg := range args {
		switch ext := strings.ToLower(filepath.Ext(arg)); ext {
		case ".yaml", ".yml":
			sc, err := corpus.LoadScenario(arg)
			if err != nil {
				return corpus.Corpus{}, "", err
			}
			scenario = sc
			name = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		default:
			v, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return corpus.Corpus{}, "", fmt.Errorf("invalid seed %q: %w", arg, err)
			}
			seed = &v
		}
	}

	s := scenario.Seed
	if seed != nil {
		s = *seed
	}
	return scenario.Generate(s), fmt.Sprintf("%s-%d", name, s), nil
}

func setupLogging() error {
	level := config.GetString("logLevel")

	var w io.Writer
	if logsDir := config.GetString("logsDir"); logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs dir: %w", err)
		}
		path := logging.LogFilePath(logsDir, AppName, SessionStartTime)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		w = f
	}

	gelfCfg := config.GetGraylogConfig()
	var gelfWriter *gelf.Writer
	if gelfCfg.Enabled {
		gw, err := logging.NewGelfWriter(gelfCfg.Address)
		if err != nil {
			// keep going without the remote sink
			fmt.Fprintf(os.Stderr, "graylog unavailable at %s: %v\n", gelfCfg.Address, err)
		} else {
			gelfWriter = gw
		}
	}

	SlogManager.Setup(w, level, gelfWriter)
	Logger = SlogManager.Logger()

	if w == nil {
		w = os.Stderr
	}
	ManagerLogger = logging.NewZerolog(w, level)
	return nil
}

func closeLogging() {
	if err := SlogManager.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close graylog writer: %v\n", err)
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func initInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}

	backup := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("influx_backup_%s.log.gz", SessionStartTime.Format("20060102_150405")))
	m := influx.NewManager(cfg, ManagerLogger, backup)
	if err := m.Connect(ctx); err != nil {
		Logger.Warn("InfluxDB reporting unavailable", "error", err)
		return nil
	}
	return m
}

func printRotations(out io.Writer) error {
	for _, r := range orientation.All() {
		m := orientation.MatrixOf(r)
		if _, err := fmt.Fprintf(out, "%2d  %v %v %v\n", r, m[0], m[1], m[2]); err != nil {
			return err
		}
	}
	return nil
}
