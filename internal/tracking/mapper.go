package tracking

import "math"

// Params holds the tunables of the orientation to audio mapping
type Params struct {
	YawSensitivity   float64 // degrees of yaw for a full left/right pan
	PitchSensitivity float64 // degrees of pitch for the full volume range
	DeadZone         float64 // degrees around center with no panning
	MinVolume        float64 // volume when looking fully down
	MaxVolume        float64 // volume when looking fully up
	MinChannel       float64 // floor for each channel before the volume multiply
}

// DefaultParams returns the mapping used when nothing is configured
func DefaultParams() Params {
	return Params{
		YawSensitivity:   30.0,
		PitchSensitivity: 20.0,
		DeadZone:         5.0,
		MinVolume:        0.3,
		MaxVolume:        1.0,
		MinChannel:       0.05,
	}
}

// AudioState is the result of one mapping pass
type AudioState struct {
	Left         float64 `json:"left"`
	Right        float64 `json:"right"`
	Volume       float64 `json:"volume"`
	EffectiveYaw float64 `json:"effective_yaw"`
}

// Mapper converts smoothed yaw and pitch into stereo gains and volume
type Mapper struct {
	params Params
}

// NewMapper creates a mapper for the given parameters.
// Params are expected to be validated by the config package.
func NewMapper(params Params) *Mapper {
	return &Mapper{params: params}
}

// Params returns the mapping parameters
func (m *Mapper) Params() Params {
	return m.params
}

// Map computes the audio state for a smoothed orientation.
// Inputs beyond the sensitivities are clamped, never extrapolated.
func (m *Mapper) Map(yaw, pitch float64) AudioState {
	p := m.params

	effectiveYaw := m.EffectiveYaw(yaw)

	// -maxYaw..+maxYaw -> 0..1, 0.5 is center
	maxYaw := p.YawSensitivity - p.DeadZone
	pan := normalize(effectiveYaw, maxYaw)

	left := math.Max(1-pan, p.MinChannel)
	right := math.Max(pan, p.MinChannel)

	// looking up is louder
	volume := p.MinVolume + normalize(pitch, p.PitchSensitivity)*(p.MaxVolume-p.MinVolume)

	return AudioState{
		Left:         left * volume,
		Right:        right * volume,
		Volume:       volume,
		EffectiveYaw: effectiveYaw,
	}
}

// EffectiveYaw removes the dead zone from yaw, preserving sign.
// |yaw| <= DeadZone yields exactly 0.
func (m *Mapper) EffectiveYaw(yaw float64) float64 {
	excess := math.Abs(yaw) - m.params.DeadZone
	if excess <= 0 {
		return 0
	}
	return math.Copysign(excess, yaw)
}

// InDeadZone reports whether yaw falls inside the center band
func (m *Mapper) InDeadZone(yaw float64) bool {
	return math.Abs(yaw) < m.params.DeadZone
}

// normalize clamps v to ±limit and maps it linearly to [0,1]
func normalize(v, limit float64) float64 {
	return (clamp(v, -limit, limit)/limit + 1) / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// LevelPitchBand is the pitch, in degrees either side of level, reported as looking level
const LevelPitchBand = 5.0

// PitchState describes which way the head is tilted relative to level
type PitchState string

const (
	PitchUp    PitchState = "up"    // louder
	PitchDown  PitchState = "down"  // quieter
	PitchLevel PitchState = "level"
)

// ClassifyPitch reports whether pitch is above, below or within LevelPitchBand
func ClassifyPitch(pitch float64) PitchState {
	switch {
	case pitch > LevelPitchBand:
		return PitchUp
	case pitch < -LevelPitchBand:
		return PitchDown
	default:
		return PitchLevel
	}
}
