// Package protocol implements decoding of OpenTrack "UDP over network" telemetry frames.
// Each datagram carries six little-endian float64 values: head position followed by
// yaw, pitch and roll in degrees.
package protocol
