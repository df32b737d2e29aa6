package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/skypro1111/headpan/internal/config"
	"github.com/skypro1111/headpan/internal/metrics"
	"github.com/skypro1111/headpan/internal/pipewire"
	"github.com/skypro1111/headpan/internal/server"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Receive head tracking telemetry and pan playback streams until interrupted",
	Action: func(c *cli.Context) error {
		sess, err := setup(c)
		if err != nil {
			return err
		}
		return run(c.Context, sess)
	},
}

var probeCommand = &cli.Command{
	Name:  "probe",
	Usage: "List the playback streams PipeWire currently reports",
	Action: func(c *cli.Context) error {
		sess, err := setup(c)
		if err != nil {
			return err
		}

		sync := newSync(sess.config, sess.logger, nil)
		nodes, err := sync.Discover(c.Context)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to list nodes: %v", err), 1)
		}

		playback := pipewire.PlaybackNodes(nodes)
		fmt.Printf("%d nodes, %d playback streams\n", len(nodes), len(playback))
		for _, node := range playback {
			fmt.Printf("  %-6s %s\n", node.ID, node.Name())
		}
		return nil
	},
}

var applyCommand = &cli.Command{
	Name:  "apply",
	Usage: "Set the channel volumes of every playback stream once",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "left", Usage: "Left channel volume", Value: 1.0},
		&cli.Float64Flag{Name: "right", Usage: "Right channel volume", Value: 1.0},
	},
	Action: func(c *cli.Context) error {
		sess, err := setup(c)
		if err != nil {
			return err
		}

		left, right := c.Float64("left"), c.Float64("right")
		if left < 0 || right < 0 {
			return cli.Exit("Channel volumes cannot be negative", 1)
		}

		updated := newSync(sess.config, sess.logger, nil).Apply(c.Context, left, right)
		fmt.Printf("Updated %d playback streams to [%.3f, %.3f]\n", updated, left, right)
		return nil
	},
}

// run wires the telemetry loop, the PipeWire sync and the optional HTTP API
// and blocks until SIGINT or SIGTERM
func run(parent context.Context, sess *session) error {
	cfg, logger := sess.config, sess.logger

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)
	sync := newSync(cfg, logger, appMetrics)
	reporter := server.NewLogReporter(logger, cfg.Logging.GetReportInterval())

	loop := server.NewLoop(cfg, logger, sync, appMetrics, reporter)
	if err := loop.Start(); err != nil {
		logger.Error("Failed to start telemetry loop", slog.String("error", err.Error()))
		return cli.Exit(err.Error(), 1)
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpConfig := server.HTTPServerConfig{
			Port:    cfg.HTTP.Port,
			Address: cfg.HTTP.Address,
			RunID:   sess.runID,
		}
		httpServer = server.NewHTTPServer(httpConfig, logger, cfg, loop, sync, appMetrics, prometheus.DefaultGatherer)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			return cli.Exit(err.Error(), 1)
		}
	}

	logger.Info("Service started successfully, waiting for telemetry...",
		slog.String("udp_address", loop.Addr().String()),
	)

	err := loop.Run(ctx)

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := loop.Stop(); err != nil {
		logger.Error("Error stopping telemetry loop", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
	return err
}

func newSync(cfg *config.Config, logger *slog.Logger, observer pipewire.Observer) *pipewire.Sync {
	return pipewire.NewSync(pipewire.Config{
		Binary:         cfg.PipeWire.Binary,
		PlaybackClass:  cfg.PipeWire.MediaClass,
		Lookahead:      cfg.PipeWire.LookaheadLines,
		CommandTimeout: cfg.PipeWire.GetCommandTimeout(),
	}, nil, logger, observer)
}
