// Package metrics aggregates per-pattern generation counters and sink
// write latencies for progress display and the final report.
package metrics
