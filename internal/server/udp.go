package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"github.com/skypro1111/headpan/internal/config"
	"github.com/skypro1111/headpan/internal/metrics"
	"github.com/skypro1111/headpan/internal/protocol"
	"github.com/skypro1111/headpan/internal/tracking"
)

// fpsWindow is the span over which apply cycles are counted
const fpsWindow = time.Second

// Applier pushes stereo channel volumes to the audio graph and reports how many
// streams were updated. *pipewire.Sync implements it.
type Applier interface {
	Apply(ctx context.Context, left, right float64) int
}

// Loop receives telemetry frames and drives the smoothing, mapping and apply steps.
// Everything except the published snapshot and counters is owned by the Run goroutine.
type Loop struct {
	conn     *net.UDPConn
	config   *config.ServerConfig
	logger   *slog.Logger
	smoother *tracking.Smoother
	mapper   *tracking.Mapper
	applier  Applier
	latency  *metrics.LatencyWindow
	metrics  *metrics.Metrics
	reporter Reporter
	now      func() time.Time

	// Scheduler state
	lastApply      time.Time
	fpsWindowStart time.Time
	fpsCount       int
	fps            float64
	raw            protocol.Orientation
	streams        int

	// Published state, read by the HTTP API
	snapshot        Snapshot
	hasSnapshot     bool
	packetsReceived uint64
	framesDecoded   uint64
	malformedFrames uint64
	receiveErrors   uint64
	applyCycles     uint64
	mu              sync.RWMutex
}

// NewLoop creates a loop from the server and tracking configuration.
// reporter may be nil.
func NewLoop(cfg *config.Config, logger *slog.Logger, applier Applier, m *metrics.Metrics, reporter Reporter) *Loop {
	if reporter == nil {
		reporter = nopReporter{}
	}

	now := time.Now()
	return &Loop{
		config:         &cfg.Server,
		logger:         logger.With(slog.String("component", "loop")),
		smoother:       tracking.NewSmoother(cfg.Tracking.SmoothingFactor),
		mapper:         tracking.NewMapper(MappingParams(&cfg.Tracking)),
		applier:        applier,
		latency:        metrics.NewLatencyWindow(cfg.Tracking.LatencyWindowSize),
		metrics:        m,
		reporter:       reporter,
		now:            time.Now,
		lastApply:      now,
		fpsWindowStart: now,
	}
}

// MappingParams converts tracking configuration into mapper parameters
func MappingParams(t *config.TrackingConfig) tracking.Params {
	return tracking.Params{
		YawSensitivity:   t.YawSensitivity,
		PitchSensitivity: t.PitchSensitivity,
		DeadZone:         t.DeadZone,
		MinVolume:        t.MinVolume,
		MaxVolume:        t.MaxVolume,
		MinChannel:       t.MinChannel,
	}
}

// Start binds the telemetry socket. A bind failure is returned to the caller.
func (l *Loop) Start() error {
	addr, err := net.ResolveUDPAddr("udp", l.config.GetAddress())
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	l.conn = conn

	if err := l.conn.SetReadBuffer(l.config.BufferSize); err != nil {
		l.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", l.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	l.logger.Info("Telemetry socket bound",
		slog.String("address", l.conn.LocalAddr().String()),
		slog.Duration("update_interval", l.config.GetUpdateInterval()),
		slog.Duration("read_timeout", l.config.GetReadTimeout()),
		slog.Float64("smoothing_factor", l.smoother.Alpha()),
		slog.Int("latency_window", l.latency.Cap()),
	)

	return nil
}

// Addr returns the bound socket address, or nil before Start
func (l *Loop) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Stop closes the socket, which also ends Run
func (l *Loop) Stop() error {
	if l.conn == nil {
		return nil
	}

	err := l.conn.Close()

	stats := l.GetStatistics()
	l.logger.Info("Telemetry loop stopped",
		slog.Uint64("packets_received", stats.PacketsReceived),
		slog.Uint64("frames_decoded", stats.FramesDecoded),
		slog.Uint64("malformed_frames", stats.MalformedFrames),
		slog.Uint64("apply_cycles", stats.ApplyCycles),
	)

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close UDP socket: %w", err)
	}
	return nil
}

// Run receives datagrams until ctx is cancelled or the socket is closed.
// The read deadline doubles as the scheduler tick.
func (l *Loop) Run(ctx context.Context) error {
	if l.conn == nil {
		return errors.New("loop not started")
	}

	buffer := make([]byte, l.config.BufferSize)
	timeout := l.config.GetReadTimeout()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Receive loop stopping due to context cancellation")
			return nil
		default:
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logger.Error("Failed to set read deadline", slog.String("error", err.Error()))
			continue
		}

		n, _, err := l.conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			select {
			case <-ctx.Done():
				return nil
			default:
			}

			l.mu.Lock()
			l.receiveErrors++
			l.mu.Unlock()
			l.metrics.RecordReceiveError()
			l.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
			continue
		}

		l.handleDatagram(ctx, buffer[:n])
	}
}

// handleDatagram decodes and smooths one datagram and runs an apply cycle when the
// rate gate allows. Returns true if an apply cycle ran.
// A 48-byte frame holding NaN or Inf is also dropped as malformed, on top of the size
// check, since one such sample would leave the smoother non-finite for good.
func (l *Loop) handleDatagram(ctx context.Context, data []byte) bool {
	l.mu.Lock()
	l.packetsReceived++
	l.mu.Unlock()
	l.metrics.RecordPacketReceived()

	orientation, err := protocol.DecodeOrientation(data)
	if err == nil && !isFinite(orientation) {
		err = fmt.Errorf("non-finite orientation %s", orientation)
	}
	if err != nil {
		l.mu.Lock()
		l.malformedFrames++
		l.mu.Unlock()
		l.metrics.RecordMalformedFrame()
		l.logger.Debug("Dropping malformed frame",
			slog.Int("packet_size", len(data)),
			slog.String("error", err.Error()),
		)
		return false
	}

	l.raw = orientation
	smoothed := l.smoother.Update(orientation)

	l.mu.Lock()
	l.framesDecoded++
	l.mu.Unlock()
	l.metrics.RecordFrameDecoded()

	if l.now().Sub(l.lastApply) < l.config.GetUpdateInterval() {
		return false
	}

	l.applyCycle(ctx, smoothed)
	return true
}

// applyCycle maps the smoothed orientation, pushes it to the audio graph and publishes the result
func (l *Loop) applyCycle(ctx context.Context, smoothed protocol.Orientation) {
	now := l.now()

	l.fpsCount++
	if elapsed := now.Sub(l.fpsWindowStart); elapsed >= fpsWindow {
		l.fps = float64(l.fpsCount) / elapsed.Seconds()
		l.fpsCount = 0
		l.fpsWindowStart = now
		l.metrics.SetApplyRate(l.fps)
	}

	state := l.mapper.Map(smoothed.Yaw, smoothed.Pitch)

	// only the apply call counts towards latency
	start := l.now()
	streams := l.applier.Apply(ctx, state.Left, state.Right)
	latency := l.now().Sub(start)
	average := l.latency.Record(latency)

	l.metrics.RecordApply(latency.Seconds(), average.Seconds(), streams)
	l.metrics.SetTrackingState(smoothed.Yaw, smoothed.Pitch, state.Left, state.Right, state.Volume)

	if streams != l.streams {
		l.logger.Info("Playback streams changed",
			slog.Int("previous", l.streams),
			slog.Int("current", streams),
		)
		l.streams = streams
	}

	l.mu.Lock()
	l.applyCycles++
	snapshot := Snapshot{
		Timestamp:        now,
		Raw:              l.raw,
		Smoothed:         smoothed,
		Audio:            state,
		InDeadZone:       l.mapper.InDeadZone(smoothed.Yaw),
		PitchState:       tracking.ClassifyPitch(smoothed.Pitch),
		FPS:              l.fps,
		LatencyMs:        durationMs(latency),
		AverageLatencyMs: durationMs(average),
		LatencySamplesMs: samplesMs(l.latency.Samples()),
		Streams:          streams,
		PacketsReceived:  l.packetsReceived,
		FramesDecoded:    l.framesDecoded,
		MalformedFrames:  l.malformedFrames,
		SmoothingFactor:  l.smoother.Alpha(),
		DeadZone:         l.mapper.Params().DeadZone,
	}
	l.snapshot = snapshot
	l.hasSnapshot = true
	l.mu.Unlock()

	l.reporter.Report(snapshot)

	l.lastApply = l.now()
}

// Snapshot returns the result of the latest apply cycle; false if none ran yet
func (l *Loop) Snapshot() (Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot, l.hasSnapshot
}

// GetStatistics returns current loop statistics
func (l *Loop) GetStatistics() LoopStatistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return LoopStatistics{
		PacketsReceived: l.packetsReceived,
		FramesDecoded:   l.framesDecoded,
		MalformedFrames: l.malformedFrames,
		ReceiveErrors:   l.receiveErrors,
		ApplyCycles:     l.applyCycles,
	}
}

// Smoothed returns the current smoothed orientation.
// Only safe to call from the Run goroutine or when Run is not active.
func (l *Loop) Smoothed() protocol.Orientation {
	return l.smoother.Value()
}

// LoopStatistics represents loop counters
type LoopStatistics struct {
	PacketsReceived uint64 `json:"packets_received"`
	FramesDecoded   uint64 `json:"frames_decoded"`
	MalformedFrames uint64 `json:"malformed_frames"`
	ReceiveErrors   uint64 `json:"receive_errors"`
	ApplyCycles     uint64 `json:"apply_cycles"`
}

func isFinite(o protocol.Orientation) bool {
	for _, v := range []float64{o.Yaw, o.Pitch, o.Roll} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func samplesMs(samples []time.Duration) []float64 {
	out := make([]float64, len(samples))
	for i, d := range samples {
		out[i] = durationMs(d)
	}
	return out
}
