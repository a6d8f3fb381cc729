// Package metrics records the outcome of a split run in a dedicated
// prometheus registry and writes it in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trisongz/gpt2-text-generation/pkg/split"
)

const namespace = "gpt2_dataprep"

// Recorder holds the gauges of the last run.
type Recorder struct {
	registry *prometheus.Registry

	read      prometheus.Gauge
	written   *prometheus.GaugeVec
	skipped   *prometheus.GaugeVec
	duration  prometheus.Gauge
	success   prometheus.Gauge
	timestamp prometheus.Gauge
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		read: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_read",
			Help:      "Records read from the input of the last run.",
		}),
		written: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_written",
			Help:      "Records written per partition in the last run.",
		}, []string{"partition"}),
		skipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_skipped",
			Help:      "Records skipped in the last run, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run committed all artifacts, 0 otherwise.",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.read, r.written, r.skipped, r.duration, r.success, r.timestamp)
	return r
}

// Observe records a finished run. sum may be partial when runErr is set.
func (r *Recorder) Observe(sum *split.Summary, elapsed time.Duration, runErr error) {
	if sum != nil {
		r.read.Set(float64(sum.Read))
		for _, p := range split.Partitions {
			r.written.WithLabelValues(string(p)).Set(float64(sum.Counts[p]))
		}
		r.skipped.WithLabelValues("missing_field").Set(float64(sum.SkippedMissing))
		r.skipped.WithLabelValues("unencodable").Set(float64(sum.SkippedInvalid))
	}
	r.duration.Set(elapsed.Seconds())
	if runErr == nil {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.timestamp.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
