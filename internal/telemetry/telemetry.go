// Package telemetry counts what a run did and exports the counts in the
// Prometheus text format.
//
// A nil *Recorder is valid and records nothing.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes.
const (
	OutcomeAnalyzed = "analyzed"
	OutcomeCached   = "cached"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeEmpty    = "empty"
)

// Recorder holds the counters for one run.
type Recorder struct {
	reg      *prometheus.Registry
	attempts *prometheus.CounterVec
	files    *prometheus.CounterVec
	records  *prometheus.CounterVec
	tokens   prometheus.Counter
	calls    prometheus.Histogram
	lastRun  prometheus.Gauge
}

// New registers the run's metrics, labelled with the backend and model.
func New(provider, model string) *Recorder {
	labels := prometheus.Labels{"provider": provider, "model": model}
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "codeaudit",
			Name:        "backend_attempts_total",
			Help:        "Backend calls made, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "codeaudit",
			Name:        "files_total",
			Help:        "Source files handled, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "codeaudit",
			Name:        "records_total",
			Help:        "Records extracted from backend replies, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "codeaudit",
			Name:        "backend_tokens_total",
			Help:        "Tokens the backend reported as used, across all attempts.",
			ConstLabels: labels,
		}),
		calls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "codeaudit",
			Name:        "file_analysis_seconds",
			Help:        "Wall time spent obtaining a reply for one file, retries included.",
			ConstLabels: labels,
			Buckets:     []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "codeaudit",
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the run finished.",
			ConstLabels: labels,
		}),
	}
	r.reg.MustRegister(r.attempts, r.files, r.records, r.tokens, r.calls, r.lastRun)
	return r
}

// Attempts records a finished retry loop: attempts-1 failures and, when ok,
// one success.
func (r *Recorder) Attempts(attempts int, ok bool) {
	if r == nil || attempts <= 0 {
		return
	}
	failed := attempts
	if ok {
		failed--
		r.attempts.WithLabelValues("ok").Inc()
	}
	r.attempts.WithLabelValues("failed").Add(float64(failed))
}

// File records the outcome for one source file.
func (r *Recorder) File(outcome string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(outcome).Inc()
}

// Records adds extracted record counts.
func (r *Recorder) Records(metrics, issues int) {
	if r == nil {
		return
	}
	r.records.WithLabelValues("metric").Add(float64(metrics))
	r.records.WithLabelValues("issue").Add(float64(issues))
}

// ObserveAnalysis records how long one file took to analyze.
func (r *Recorder) ObserveAnalysis(d time.Duration) {
	if r == nil {
		return
	}
	r.calls.Observe(d.Seconds())
}

// Tokens adds the token usage reported for one backend call.
func (r *Recorder) Tokens(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.tokens.Add(float64(n))
}

// WriteFile stamps the finish time and writes all metrics to path in the
// Prometheus text format, for node_exporter's textfile collector.
func (r *Recorder) WriteFile(path string, finished time.Time) error {
	if r == nil || path == "" {
		return nil
	}
	r.lastRun.Set(float64(finished.Unix()))
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
