package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Frame layout constants
const (
	// FieldSize is the width of one IEEE-754 double on the wire
	FieldSize = 8
	// FieldCount is the number of values in a frame: x, y, z, yaw, pitch, roll
	FieldCount = 6
	// FrameSize is the exact datagram size accepted by the decoder
	FrameSize = FieldSize * FieldCount

	// Field indices within the frame
	fieldX     = 0
	fieldY     = 1
	fieldZ     = 2
	fieldYaw   = 3
	fieldPitch = 4
	fieldRoll  = 5
)

// ErrFrameSize is returned when a datagram is not exactly FrameSize bytes
var ErrFrameSize = errors.New("invalid frame size")

// Orientation is a head orientation sample in degrees
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Frame represents a fully decoded telemetry datagram
// Layout: [X:8][Y:8][Z:8][Yaw:8][Pitch:8][Roll:8], little-endian
type Frame struct {
	X, Y, Z     float64 // Head position, ignored by the panner
	Orientation Orientation
}

// DecodeFrame parses one telemetry datagram.
// Anything other than exactly FrameSize bytes is rejected without a partial decode.
func DecodeFrame(data []byte) (*Frame, error) {
	if !IsValidFrameSize(len(data)) {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrFrameSize, FrameSize, len(data))
	}

	return &Frame{
		X: readField(data, fieldX),
		Y: readField(data, fieldY),
		Z: readField(data, fieldZ),
		Orientation: Orientation{
			Yaw:   readField(data, fieldYaw),
			Pitch: readField(data, fieldPitch),
			Roll:  readField(data, fieldRoll),
		},
	}, nil
}

// DecodeOrientation parses a datagram and returns only the orientation triplet
func DecodeOrientation(data []byte) (Orientation, error) {
	frame, err := DecodeFrame(data)
	if err != nil {
		return Orientation{}, err
	}
	return frame.Orientation, nil
}

// EncodeFrame serializes a frame into its 48-byte wire representation
func EncodeFrame(f Frame) []byte {
	data := make([]byte, FrameSize)
	writeField(data, fieldX, f.X)
	writeField(data, fieldY, f.Y)
	writeField(data, fieldZ, f.Z)
	writeField(data, fieldYaw, f.Orientation.Yaw)
	writeField(data, fieldPitch, f.Orientation.Pitch)
	writeField(data, fieldRoll, f.Orientation.Roll)
	return data
}

// IsValidFrameSize checks if a datagram length matches the frame layout
func IsValidFrameSize(n int) bool {
	return n == FrameSize
}

func readField(data []byte, index int) float64 {
	offset := index * FieldSize
	return math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+FieldSize]))
}

func writeField(data []byte, index int, v float64) {
	offset := index * FieldSize
	binary.LittleEndian.PutUint64(data[offset:offset+FieldSize], math.Float64bits(v))
}

// String returns a human-readable representation of the orientation
func (o Orientation) String() string {
	return fmt.Sprintf("Orientation{Yaw:%.1f, Pitch:%.1f, Roll:%.1f}", o.Yaw, o.Pitch, o.Roll)
}

// String returns a human-readable representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{Pos:(%.2f, %.2f, %.2f), %s}", f.X, f.Y, f.Z, f.Orientation)
}
