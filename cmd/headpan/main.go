package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/skypro1111/headpan/internal/config"
)

const (
	serviceName    = "headpan"
	serviceVersion = "1.0.0"
	defaultEnvFile = ".env"
)

func main() {
	app := &cli.App{
		Name:    serviceName,
		Usage:   "Pan desktop audio streams from OpenTrack head tracking",
		Version: serviceVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file; built-in defaults apply when omitted",
				EnvVars: []string{"HEADPAN_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with HEADPAN_* overrides",
			},
		},
		Before: loadEnvFile,
		Action: runCommand.Action,
		Commands: []*cli.Command{
			runCommand,
			probeCommand,
			applyCommand,
			sendCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

// loadEnvFile loads --env-file, or ./.env when present
func loadEnvFile(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := config.LoadEnv(path); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to load env file %s: %v", path, err), 1)
		}
		return nil
	}

	if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := config.LoadEnv(defaultEnvFile); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to load env file %s: %v", defaultEnvFile, err), 1)
	}
	return nil
}

// session holds what every command shares
type session struct {
	config *config.Config
	logger *slog.Logger
	runID  string
}

// setup loads the configuration and creates the logger tagged with a fresh run id
func setup(c *cli.Context) (*session, error) {
	configPath := c.String("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Failed to load configuration: %v", err), 1)
	}

	runID := uuid.NewString()
	logger := initLogger(cfg.Logging).With(slog.String("run_id", runID))

	logger.Debug("Configuration loaded",
		slog.String("config_path", configPath),
		slog.Int("udp_port", cfg.Server.UDPPort),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("update_interval_ms", cfg.Server.UpdateInterval),
		slog.Float64("smoothing_factor", cfg.Tracking.SmoothingFactor),
		slog.Float64("dead_zone", cfg.Tracking.DeadZone),
		slog.String("pw_cli", cfg.PipeWire.Binary),
	)

	return &session{config: cfg, logger: logger, runID: runID}, nil
}
