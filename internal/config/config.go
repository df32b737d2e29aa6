package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Tracking TrackingConfig `yaml:"tracking"`
	PipeWire PipeWireConfig `yaml:"pipewire"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains the telemetry socket and scheduler configuration
type ServerConfig struct {
	UDPPort        int    `yaml:"udp_port" env:"HEADPAN_UDP_PORT, overwrite"`
	BindAddress    string `yaml:"bind_address" env:"HEADPAN_BIND_ADDRESS, overwrite"`
	BufferSize     int    `yaml:"buffer_size" env:"HEADPAN_BUFFER_SIZE, overwrite"`
	UpdateInterval int    `yaml:"update_interval" env:"HEADPAN_UPDATE_INTERVAL, overwrite"` // milliseconds
}

// TrackingConfig contains smoothing and orientation to audio mapping parameters
type TrackingConfig struct {
	SmoothingFactor   float64 `yaml:"smoothing_factor" env:"HEADPAN_SMOOTHING_FACTOR, overwrite"`
	YawSensitivity    float64 `yaml:"yaw_sensitivity" env:"HEADPAN_YAW_SENSITIVITY, overwrite"`     // degrees
	PitchSensitivity  float64 `yaml:"pitch_sensitivity" env:"HEADPAN_PITCH_SENSITIVITY, overwrite"` // degrees
	DeadZone          float64 `yaml:"dead_zone" env:"HEADPAN_DEAD_ZONE, overwrite"`                 // degrees
	MinVolume         float64 `yaml:"min_volume" env:"HEADPAN_MIN_VOLUME, overwrite"`
	MaxVolume         float64 `yaml:"max_volume" env:"HEADPAN_MAX_VOLUME, overwrite"`
	MinChannel        float64 `yaml:"min_channel" env:"HEADPAN_MIN_CHANNEL, overwrite"`
	LatencyWindowSize int     `yaml:"latency_window_size" env:"HEADPAN_LATENCY_WINDOW_SIZE, overwrite"`
}

// PipeWireConfig contains the pw-cli integration parameters
type PipeWireConfig struct {
	Binary         string `yaml:"binary" env:"HEADPAN_PW_CLI, overwrite"`
	MediaClass     string `yaml:"media_class" env:"HEADPAN_MEDIA_CLASS, overwrite"`
	LookaheadLines int    `yaml:"lookahead_lines" env:"HEADPAN_LOOKAHEAD_LINES, overwrite"`
	CommandTimeout int    `yaml:"command_timeout" env:"HEADPAN_COMMAND_TIMEOUT, overwrite"` // milliseconds, 0 disables
}

// HTTPConfig contains status API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port" env:"HEADPAN_HTTP_PORT, overwrite"`
	Address string `yaml:"address" env:"HEADPAN_HTTP_ADDRESS, overwrite"`
	Enabled bool   `yaml:"enabled" env:"HEADPAN_HTTP_ENABLED, overwrite"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `yaml:"level" env:"HEADPAN_LOG_LEVEL, overwrite"`
	Format         string `yaml:"format" env:"HEADPAN_LOG_FORMAT, overwrite"`
	Output         string `yaml:"output" env:"HEADPAN_LOG_OUTPUT, overwrite"`
	ReportInterval int    `yaml:"report_interval" env:"HEADPAN_REPORT_INTERVAL, overwrite"` // seconds, 0 disables
}

// Default returns the configuration used when no file or environment overrides exist
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			UDPPort:        4242,
			BindAddress:    "127.0.0.1",
			BufferSize:     65536,
			UpdateInterval: 40,
		},
		Tracking: TrackingConfig{
			SmoothingFactor:   0.75,
			YawSensitivity:    30.0,
			PitchSensitivity:  20.0,
			DeadZone:          5.0,
			MinVolume:         0.3,
			MaxVolume:         1.0,
			MinChannel:        0.05,
			LatencyWindowSize: 30,
		},
		PipeWire: PipeWireConfig{
			Binary:         "pw-cli",
			MediaClass:     "Stream/Output/Audio",
			LookaheadLines: 20,
			CommandTimeout: 0,
		},
		HTTP: HTTPConfig{
			Port:    9242,
			Address: "127.0.0.1",
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			Output:         "stderr",
			ReportInterval: 5,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped when
// path is empty) and HEADPAN_* environment variables, then validates it
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadEnv reads KEY=value pairs from the given .env files into the process environment.
// Variables already set are not overridden. With no arguments it reads ./.env.
func LoadEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Tracking.Validate(); err != nil {
		return fmt.Errorf("tracking config: %w", err)
	}

	if err := c.PipeWire.Validate(); err != nil {
		return fmt.Errorf("pipewire config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.UDPPort < 1 || s.UDPPort > 65535 {
		return fmt.Errorf("udp_port must be between 1 and 65535, got %d", s.UDPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.BufferSize < 1024 {
		return fmt.Errorf("buffer_size must be at least 1024 bytes, got %d", s.BufferSize)
	}

	if s.UpdateInterval < 2 {
		return fmt.Errorf("update_interval must be at least 2 ms, got %d", s.UpdateInterval)
	}

	return nil
}

// Validate validates tracking configuration
func (t *TrackingConfig) Validate() error {
	if t.SmoothingFactor < 0 || t.SmoothingFactor >= 1 {
		return fmt.Errorf("smoothing_factor must be in [0, 1), got %f", t.SmoothingFactor)
	}

	if t.YawSensitivity <= 0 {
		return fmt.Errorf("yaw_sensitivity must be positive, got %f", t.YawSensitivity)
	}

	if t.PitchSensitivity <= 0 {
		return fmt.Errorf("pitch_sensitivity must be positive, got %f", t.PitchSensitivity)
	}

	if t.DeadZone < 0 {
		return fmt.Errorf("dead_zone cannot be negative, got %f", t.DeadZone)
	}

	if t.DeadZone >= t.YawSensitivity {
		return fmt.Errorf("dead_zone (%f) must be smaller than yaw_sensitivity (%f)",
			t.DeadZone, t.YawSensitivity)
	}

	if t.MinVolume < 0 || t.MaxVolume > 1 {
		return fmt.Errorf("volume range must lie within [0, 1], got [%f, %f]", t.MinVolume, t.MaxVolume)
	}

	if t.MinVolume > t.MaxVolume {
		return fmt.Errorf("min_volume (%f) cannot exceed max_volume (%f)", t.MinVolume, t.MaxVolume)
	}

	if t.MinChannel < 0 || t.MinChannel > 1 {
		return fmt.Errorf("min_channel must be between 0 and 1, got %f", t.MinChannel)
	}

	if t.LatencyWindowSize < 1 {
		return fmt.Errorf("latency_window_size must be at least 1, got %d", t.LatencyWindowSize)
	}

	return nil
}

// Validate validates pw-cli integration configuration
func (p *PipeWireConfig) Validate() error {
	if p.Binary == "" {
		return fmt.Errorf("binary cannot be empty")
	}

	if p.MediaClass == "" {
		return fmt.Errorf("media_class cannot be empty")
	}

	if p.LookaheadLines < 1 {
		return fmt.Errorf("lookahead_lines must be at least 1, got %d", p.LookaheadLines)
	}

	if p.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout cannot be negative, got %d", p.CommandTimeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output may also be a file path
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	if l.ReportInterval < 0 {
		return fmt.Errorf("report_interval cannot be negative, got %d", l.ReportInterval)
	}

	return nil
}

// GetUpdateInterval returns the minimum time between apply cycles
func (s *ServerConfig) GetUpdateInterval() time.Duration {
	return time.Duration(s.UpdateInterval) * time.Millisecond
}

// GetReadTimeout returns the socket read deadline, half the update interval
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return s.GetUpdateInterval() / 2
}

// GetAddress returns the host:port the telemetry socket binds to
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.UDPPort)
}

// GetCommandTimeout returns the pw-cli timeout as a time.Duration, 0 when disabled
func (p *PipeWireConfig) GetCommandTimeout() time.Duration {
	return time.Duration(p.CommandTimeout) * time.Millisecond
}

// GetReportInterval returns the status summary interval as a time.Duration
func (l *LoggingConfig) GetReportInterval() time.Duration {
	return time.Duration(l.ReportInterval) * time.Second
}
