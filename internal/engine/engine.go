// Package engine drives registration of a set of scanners into one global
// frame. Pending scanners cycle through a work queue and are tried against
// the growing beacon set until every scanner is placed or a whole pass makes
// no progress.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/OCAP2/beaconmap/internal/cache"
	"github.com/OCAP2/beaconmap/internal/queue"
	"github.com/OCAP2/beaconmap/internal/registrar"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// DefaultMinOverlap is the number of coincident beacons needed to accept an alignment.
const DefaultMinOverlap = 12

// Logger interface for pluggable logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	minOverlap int
	workers    int
	rootID     int
	hasRoot    bool
	logger     Logger
}

// WithMinOverlap sets how many beacons must coincide to accept an alignment.
func WithMinOverlap(n int) Option {
	return func(c *config) {
		c.minOverlap = n
	}
}

// WithWorkers fans registration attempts of a pass out over n goroutines.
// n <= 1 keeps the sequential work list.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithRoot anchors the global frame at the scanner with the given id.
// By default the first scanner in input order is the root.
func WithRoot(id int) Option {
	return func(c *config) {
		c.rootID = id
		c.hasRoot = true
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Engine registers scanners. A single Engine may be reused for several runs
// but Run must not be called concurrently.
type Engine struct {
	cfg config

	// rotated detections of pending scanners, keyed by id; valid for one Run
	orientations *cache.OrientationCache
	// maxAttempts overrides the n*n attempt bound when positive
	maxAttempts int

	// OTEL metrics
	attempts metric.Int64Counter
	resolved metric.Int64Counter
	passes   metric.Int64Counter
}

// New creates an Engine.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(opts ...Option) (*Engine, error) {
	cfg := config{
		minOverlap: DefaultMinOverlap,
		workers:    1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.minOverlap < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOverlap, cfg.minOverlap)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	e := &Engine{cfg: cfg, orientations: cache.NewOrientationCache()}
	m := meter()

	var err error
	e.attempts, err = m.Int64Counter(
		"registration.attempts",
		metric.WithDescription("Pairwise registration attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	e.resolved, err = m.Int64Counter(
		"registration.resolved",
		metric.WithDescription("Scanners placed in the global frame"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolved counter: %w", err)
	}

	e.passes, err = m.Int64Counter(
		"registration.passes",
		metric.WithDescription("Full passes over the pending queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating passes counter: %w", err)
	}

	return e, nil
}

// MinOverlap returns the configured acceptance threshold.
func (e *Engine) MinOverlap() int {
	return e.cfg.minOverlap
}

// run holds the mutable state of one registration.
type run struct {
	m        *core.GlobalMap
	pending  *queue.Queue[core.Scanner]
	attempts cache.SafeCounter
	passes   int
	limit    int
}

// Run registers scanners into the frame of the root scanner.
//
// On success every scanner is resolved. If a full pass over the pending
// scanners resolves nothing, Run returns the partial map together with a
// *StalledRegistrationError naming the unresolved ids. Cancelling ctx stops
// the run between attempts.
func (e *Engine) Run(ctx context.Context, scanners []core.Scanner) (*core.GlobalMap, error) {
	root, rest, err := e.split(scanners)
	if err != nil {
		return nil, err
	}

	// ids repeat between inputs, so nothing cached by an earlier run applies
	e.orientations.Reset()

	start := time.Now()
	r := &run{
		m:       core.NewGlobalMap(root),
		pending: queue.New(rest...),
		limit:   len(scanners) * len(scanners),
	}
	if e.maxAttempts > 0 {
		r.limit = e.maxAttempts
	}
	e.cfg.logger.Info("registration started",
		"scanners", len(scanners), "root", root.ID, "minOverlap", e.cfg.minOverlap, "workers", e.cfg.workers)

	if e.cfg.workers > 1 {
		err = e.runParallel(ctx, r)
	} else {
		err = e.runSequential(ctx, r)
	}
	if err != nil {
		return r.m, err
	}

	e.cfg.logger.Info("registration complete",
		"scanners", len(r.m.Resolved),
		"beacons", r.m.Beacons.Len(),
		"passes", r.passes,
		"attempts", r.attempts.Value(),
		"duration", time.Since(start))
	return r.m, nil
}

// split validates the input and separates the root from the pending scanners.
func (e *Engine) split(scanners []core.Scanner) (core.Scanner, []core.Scanner, error) {
	if len(scanners) == 0 {
		return core.Scanner{}, nil, ErrNoScanners
	}

	seen := make(map[int]bool, len(scanners))
	for _, s := range scanners {
		if seen[s.ID] {
			return core.Scanner{}, nil, fmt.Errorf("%w: %d", ErrDuplicateScanner, s.ID)
		}
		seen[s.ID] = true
	}

	rootID := scanners[0].ID
	if e.cfg.hasRoot {
		rootID = e.cfg.rootID
		if !seen[rootID] {
			return core.Scanner{}, nil, fmt.Errorf("%w: %d", ErrUnknownRoot, rootID)
		}
	}

	var root core.Scanner
	rest := make([]core.Scanner, 0, len(scanners)-1)
	for _, s := range scanners {
		s = core.NewScanner(s.ID, s.Detections)
		if s.ID == rootID {
			root = s
			continue
		}
		rest = append(rest, s)
	}
	return root, rest, nil
}

func (e *Engine) runSequential(ctx context.Context, r *run) error {
	sinceProgress := 0
	passLeft := r.pending.Len()

	for {
		s, ok := r.pending.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			r.pending.Push(s)
			return fmt.Errorf("registration cancelled: %w", err)
		}
		if r.attempts.Value() >= r.limit {
			r.pending.Push(s)
			return e.stall(r)
		}

		a, matched := e.attempt(ctx, r, r.m.Beacons, s)
		if matched {
			e.merge(ctx, r, s, a)
			sinceProgress = 0
		} else {
			r.pending.Push(s)
			sinceProgress++
		}

		passLeft--
		if passLeft <= 0 {
			r.passes++
			e.passes.Add(ctx, 1)
			passLeft = r.pending.Len()
		}

		// every pending scanner failed against the same beacon set
		if !matched && sinceProgress >= r.pending.Len() {
			return e.stall(r)
		}
	}
}

type outcome struct {
	alignment registrar.Alignment
	matched   bool
}

// runParallel tries every pending scanner of a pass against one snapshot of
// the beacon set, waits for all attempts, then merges matches one at a time
// in queue order.
func (e *Engine) runParallel(ctx context.Context, r *run) error {
	for !r.pending.Empty() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("registration cancelled: %w", err)
		}
		if r.attempts.Value() >= r.limit {
			return e.stall(r)
		}

		batch := r.pending.Drain()
		snapshot := r.m.Beacons.Clone()
		results := make([]outcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.workers)
		for i, s := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				a, ok := e.attempt(gctx, r, snapshot, s)
				results[i] = outcome{alignment: a, matched: ok}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			r.pending.Push(batch...)
			return fmt.Errorf("registration cancelled: %w", err)
		}

		progress := 0
		for i, s := range batch {
			if results[i].matched {
				e.merge(ctx, r, s, results[i].alignment)
				progress++
				continue
			}
			r.pending.Push(s)
		}
		r.passes++
		e.passes.Add(ctx, 1)

		if progress == 0 {
			return e.stall(r)
		}
	}
	return nil
}

// attempt tries one scanner against a reference set. It only reads reference.
func (e *Engine) attempt(ctx context.Context, r *run, reference *core.PointSet, s core.Scanner) (registrar.Alignment, bool) {
	r.attempts.Inc()
	e.attempts.Add(ctx, 1, metric.WithAttributes(attribute.Int("scanner", s.ID)))

	if len(s.Detections) < e.cfg.minOverlap {
		return registrar.Alignment{}, false
	}
	a, ok := registrar.TryRegisterOriented(reference, e.orientations.Oriented(s), e.cfg.minOverlap)
	if !ok {
		e.cfg.logger.Debug("no alignment", "scanner", s.ID, "beacons", reference.Len())
	}
	return a, ok
}

// merge is the only place the global map is mutated.
func (e *Engine) merge(ctx context.Context, r *run, s core.Scanner, a registrar.Alignment) {
	s.Position = a.Translation
	s.Rotation = a.Rotation
	added := r.m.Merge(s, a.Transform(s.Detections))
	e.orientations.Forget(s.ID)

	e.resolved.Add(ctx, 1, metric.WithAttributes(attribute.Int("scanner", s.ID)))
	e.cfg.logger.Info("scanner resolved",
		"scanner", s.ID,
		"position", s.Position.String(),
		"rotation", int(s.Rotation),
		"overlap", a.Overlap,
		"newBeacons", added,
		"beacons", r.m.Beacons.Len())
}

// stall logs the best partial alignment of every unresolved scanner and
// builds the stall error.
func (e *Engine) stall(r *run) error {
	pending := r.pending.Items()
	ids := make([]int, len(pending))
	for i, s := range pending {
		ids[i] = s.ID
		if best, ok := registrar.BestAlignment(r.m.Beacons, s.Detections); ok {
			e.cfg.logger.Error("scanner unresolved",
				"scanner", s.ID,
				"bestOverlap", best.Overlap,
				"required", e.cfg.minOverlap)
		}
	}
	err := newStalledError(ids, r.passes, r.attempts.Value())
	e.cfg.logger.Error("registration stalled", "error", err)
	return err
}
