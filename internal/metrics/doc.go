// Package metrics provides Prometheus instrumentation for the panner and the
// bounded latency window used to report the moving average of apply latency.
package metrics
