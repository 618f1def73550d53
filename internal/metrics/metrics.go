// Package metrics keeps Prometheus collectors for registration runs and
// writes them in the node_exporter textfile format, which suits a
// short-lived CLI better than a scrape endpoint.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OCAP2/beaconmap/pkg/core"
)

const namespace = "beaconmap"

// Recorder aggregates run outcomes on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	beacons     prometheus.Gauge
	maxDistance prometheus.Gauge
	unresolved  prometheus.Gauge
	duration    prometheus.Histogram
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Registration runs by outcome.",
		}, []string{"outcome"}),
		beacons: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_beacons",
			Help:      "Distinct beacons found by the last run.",
		}),
		maxDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_max_scanner_distance",
			Help:      "Largest Manhattan distance between two scanners in the last run.",
		}),
		unresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_unresolved_scanners",
			Help:      "Scanners the last run could not place.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of registration runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	r.registry.MustRegister(r.runs, r.beacons, r.maxDistance, r.unresolved, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one run.
func (r *Recorder) Observe(run *core.Run) {
	outcome := "converged"
	if len(run.Unresolved) > 0 {
		outcome = "stalled"
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.beacons.Set(float64(run.BeaconCount))
	r.maxDistance.Set(float64(run.MaxDistance))
	r.unresolved.Set(float64(len(run.Unresolved)))
	r.duration.Observe(run.Duration.Seconds())
}

// WriteTextfile atomically writes the current values to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
