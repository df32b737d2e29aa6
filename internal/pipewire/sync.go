package pipewire

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config contains pw-cli integration configuration
type Config struct {
	Binary         string        // pw-cli executable
	PlaybackClass  string        // media.class of streams to update
	Lookahead      int           // lines scanned per node block
	CommandTimeout time.Duration // per invocation, 0 disables
}

// Observer receives per-call outcomes; *metrics.Metrics implements it
type Observer interface {
	RecordEndpointUpdate(success bool)
	RecordDiscoveryFailure()
}

// Sync pushes channel volumes to every playback stream known to PipeWire
type Sync struct {
	config   Config
	runner   Runner
	logger   *slog.Logger
	observer Observer
}

// NewSync creates a Sync. runner may be nil to use ExecRunner; observer may be nil.
func NewSync(cfg Config, runner Runner, logger *slog.Logger, observer Observer) *Sync {
	if cfg.Binary == "" {
		cfg.Binary = "pw-cli"
	}
	if cfg.PlaybackClass == "" {
		cfg.PlaybackClass = DefaultPlaybackClass
	}
	if cfg.Lookahead < 1 {
		cfg.Lookahead = DefaultLookahead
	}
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Sync{
		config:   cfg,
		runner:   runner,
		logger:   logger.With(slog.String("component", "pipewire")),
		observer: observer,
	}
}

// Discover lists all nodes currently in the graph
func (s *Sync) Discover(ctx context.Context) ([]Node, error) {
	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	out, err := s.runner.Run(ctx, s.config.Binary, "list-objects", "Node")
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	return ParseNodes(string(out), s.config.Lookahead, s.config.PlaybackClass), nil
}

// SetChannelVolumes sets the Props channelVolumes of one node to [left, right]
func (s *Sync) SetChannelVolumes(ctx context.Context, id string, left, right float64) error {
	ctx, cancel := s.commandContext(ctx)
	defer cancel()

	if _, err := s.runner.Run(ctx, s.config.Binary, "set-param", id, "Props", ChannelVolumesPayload(left, right)); err != nil {
		return fmt.Errorf("failed to set channel volumes on node %s: %w", id, err)
	}
	return nil
}

// Apply discovers playback streams and sets their channel volumes.
// It returns the number of streams updated successfully. A failed discovery
// yields 0 and a failed node is skipped; neither is reported as an error.
func (s *Sync) Apply(ctx context.Context, left, right float64) int {
	nodes, err := s.Discover(ctx)
	if err != nil {
		s.logger.Debug("Node discovery failed", slog.String("error", err.Error()))
		if s.observer != nil {
			s.observer.RecordDiscoveryFailure()
		}
		return 0
	}

	updated := 0
	for _, node := range nodes {
		if !node.IsPlaybackStream {
			continue
		}

		err := s.SetChannelVolumes(ctx, node.ID, left, right)
		if s.observer != nil {
			s.observer.RecordEndpointUpdate(err == nil)
		}
		if err != nil {
			s.logger.Debug("Channel volume update failed",
				slog.String("node_id", node.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		updated++
	}

	return updated
}

func (s *Sync) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.CommandTimeout > 0 {
		return context.WithTimeout(ctx, s.config.CommandTimeout)
	}
	return context.WithCancel(ctx)
}

// ChannelVolumesPayload formats the Props payload for a stereo channel volume update
func ChannelVolumesPayload(left, right float64) string {
	return fmt.Sprintf(`{ "channelVolumes": [%.3f, %.3f] }`, left, right)
}
