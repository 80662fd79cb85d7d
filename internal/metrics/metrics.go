// Package metrics provides a small, backend-agnostic facade for recording
// operational counters and timings from the loader.
//
// A global, pluggable backend defaults to a no-op implementation, so metric
// calls are always safe even when nothing is configured. Concrete systems
// (Prometheus Pushgateway) are isolated in subpackages behind the Backend
// interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system must implement.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style observation in seconds.
	ObserveDuration(name string, seconds float64, labels Labels)
	// Flush pushes collected metrics if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)      {}
func (nopBackend) ObserveDuration(string, float64, Labels) {}
func (nopBackend) Flush() error                            { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the current one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

// RecordStep measures one pipeline step (read, parse, load) with its latency
// and success/failure status.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}
	backend.IncCounter("ingest_step_total", 1, lbls)
	backend.ObserveDuration("ingest_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given kind.
//
// Kinds mirror the per-file report fields:
//   - "read"      rows decoded from the file
//   - "validated" rows that passed validation and the status filter
//   - "filtered"  rows dropped by the status allow-list
//   - "invalid"   rows dropped by validation
//   - "rejected"  rows refused by the sink
//   - "loaded"    rows accepted by the sink
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("ingest_rows_total", float64(delta), Labels{"job": job, "kind": kind})
}

// RecordFile counts one processed file with its terminal outcome
// ("done", "failed", "skipped").
func RecordFile(job, outcome string) {
	backend.IncCounter("ingest_files_total", 1, Labels{"job": job, "outcome": outcome})
}
