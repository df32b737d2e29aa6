// Package server runs the telemetry receive loop that smooths head orientation, applies
// channel volumes to PipeWire at a bounded rate, and serves the optional HTTP status API.
package server
