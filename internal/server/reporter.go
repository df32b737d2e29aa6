package server

import (
	"log/slog"
	"math"
	"time"

	"github.com/skypro1111/headpan/internal/protocol"
	"github.com/skypro1111/headpan/internal/tracking"
)

// Snapshot is the state published after every apply cycle
type Snapshot struct {
	Timestamp        time.Time            `json:"timestamp"`
	Raw              protocol.Orientation `json:"raw"`
	Smoothed         protocol.Orientation `json:"smoothed"`
	Audio            tracking.AudioState  `json:"audio"`
	InDeadZone       bool                 `json:"in_dead_zone"`
	PitchState       tracking.PitchState  `json:"pitch_state"`
	FPS              float64              `json:"fps"`
	LatencyMs        float64              `json:"latency_ms"`
	AverageLatencyMs float64              `json:"average_latency_ms"`
	LatencySamplesMs []float64            `json:"latency_samples_ms"` // oldest first
	Streams          int                  `json:"streams"`
	PacketsReceived  uint64               `json:"packets_received"`
	FramesDecoded    uint64               `json:"frames_decoded"`
	MalformedFrames  uint64               `json:"malformed_frames"`
	SmoothingFactor  float64              `json:"smoothing_factor"`
	DeadZone         float64              `json:"dead_zone"`
}

// Reporter receives a snapshot after every apply cycle.
// It runs on the loop goroutine and must not block.
type Reporter interface {
	Report(Snapshot)
}

type nopReporter struct{}

func (nopReporter) Report(Snapshot) {}

// LogReporter writes cycle snapshots to a structured logger: every cycle at debug
// level and a summary at info level at most once per interval
type LogReporter struct {
	logger     *slog.Logger
	interval   time.Duration
	lastReport time.Time
}

// NewLogReporter creates a log reporter. An interval of 0 disables the info summary.
func NewLogReporter(logger *slog.Logger, interval time.Duration) *LogReporter {
	return &LogReporter{
		logger:   logger.With(slog.String("component", "reporter")),
		interval: interval,
	}
}

// Report logs the snapshot
func (r *LogReporter) Report(s Snapshot) {
	r.logger.Debug("Apply cycle",
		slog.Float64("yaw", s.Smoothed.Yaw),
		slog.Float64("pitch", s.Smoothed.Pitch),
		slog.Float64("effective_yaw", s.Audio.EffectiveYaw),
		slog.Float64("left", s.Audio.Left),
		slog.Float64("right", s.Audio.Right),
		slog.Float64("volume", s.Audio.Volume),
		slog.Int("streams", s.Streams),
		slog.Float64("latency_ms", s.LatencyMs),
	)

	if r.interval <= 0 || s.Timestamp.Sub(r.lastReport) < r.interval {
		return
	}
	r.lastReport = s.Timestamp

	r.logger.Info("Tracking status",
		slog.Float64("yaw", round1(s.Smoothed.Yaw)),
		slog.Float64("pitch", round1(s.Smoothed.Pitch)),
		slog.Float64("roll", round1(s.Smoothed.Roll)),
		slog.Float64("raw_yaw", round1(s.Raw.Yaw)),
		slog.Float64("raw_pitch", round1(s.Raw.Pitch)),
		slog.Float64("raw_roll", round1(s.Raw.Roll)),
		slog.Bool("in_dead_zone", s.InDeadZone),
		slog.Float64("effective_yaw", round1(s.Audio.EffectiveYaw)),
		slog.Float64("left", round2(s.Audio.Left)),
		slog.Float64("right", round2(s.Audio.Right)),
		slog.Float64("volume", round2(s.Audio.Volume)),
		slog.String("pitch_state", string(s.PitchState)),
		slog.Float64("fps", round1(s.FPS)),
		slog.Float64("avg_latency_ms", round2(s.AverageLatencyMs)),
		slog.Int("streams", s.Streams),
		slog.Uint64("packets", s.PacketsReceived),
		slog.Float64("smoothing_pct", math.Round(s.SmoothingFactor*100)),
		slog.Float64("dead_zone", s.DeadZone),
	)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
