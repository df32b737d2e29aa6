// Package tracking turns decoded head orientation into audio parameters.
// It provides the exponential smoother applied to every valid frame and the
// mapper from smoothed yaw and pitch to stereo gains and volume.
package tracking
