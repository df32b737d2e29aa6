package tracking

import "github.com/skypro1111/headpan/internal/protocol"

// DefaultSmoothingFactor keeps the tracker responsive while hiding sensor jitter
const DefaultSmoothingFactor = 0.75

// Smoother is an exponential low-pass filter applied independently to yaw, pitch and roll.
// It is not safe for concurrent use; the update loop owns it.
type Smoother struct {
	alpha float64
	value protocol.Orientation
}

// NewSmoother creates a smoother with the given factor.
// 0 passes raw input through, values close to 1 lag heavily.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update blends a raw sample into the state: s = alpha*s + (1-alpha)*raw.
// Returns the new smoothed orientation.
func (s *Smoother) Update(raw protocol.Orientation) protocol.Orientation {
	s.value.Yaw = s.blend(s.value.Yaw, raw.Yaw)
	s.value.Pitch = s.blend(s.value.Pitch, raw.Pitch)
	s.value.Roll = s.blend(s.value.Roll, raw.Roll)
	return s.value
}

func (s *Smoother) blend(prev, raw float64) float64 {
	return s.alpha*prev + (1-s.alpha)*raw
}

// Value returns the current smoothed orientation
func (s *Smoother) Value() protocol.Orientation {
	return s.value
}

// Alpha returns the smoothing factor
func (s *Smoother) Alpha() float64 {
	return s.alpha
}
