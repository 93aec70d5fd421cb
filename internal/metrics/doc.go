// Package metrics exposes Prometheus instrumentation for the fetch pipeline.
// Per-task counters accumulate in the task context and are merged here once,
// when the fetch iterator is exhausted.
package metrics
