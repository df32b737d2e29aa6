package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default configuration to be valid, got: %v", err)
	}

	if cfg.Server.GetAddress() != "127.0.0.1:4242" {
		t.Errorf("Expected default address 127.0.0.1:4242, got %s", cfg.Server.GetAddress())
	}
	if cfg.Server.GetUpdateInterval() != 40*time.Millisecond {
		t.Errorf("Expected 40ms update interval, got %v", cfg.Server.GetUpdateInterval())
	}
	if cfg.Server.GetReadTimeout() != 20*time.Millisecond {
		t.Errorf("Expected 20ms read timeout, got %v", cfg.Server.GetReadTimeout())
	}
	if cfg.PipeWire.GetCommandTimeout() != 0 {
		t.Errorf("Expected command timeout disabled by default, got %v", cfg.PipeWire.GetCommandTimeout())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:     "invalid server port",
			mutate:   func(c *Config) { c.Server.UDPPort = 70000 },
			errorMsg: "udp_port must be between 1 and 65535",
		},
		{
			name:     "empty bind address",
			mutate:   func(c *Config) { c.Server.BindAddress = "" },
			errorMsg: "bind_address cannot be empty",
		},
		{
			name:     "update interval too small",
			mutate:   func(c *Config) { c.Server.UpdateInterval = 1 },
			errorMsg: "update_interval must be at least 2 ms",
		},
		{
			name:     "smoothing factor frozen",
			mutate:   func(c *Config) { c.Tracking.SmoothingFactor = 1 },
			errorMsg: "smoothing_factor must be in [0, 1)",
		},
		{
			name:     "negative smoothing factor",
			mutate:   func(c *Config) { c.Tracking.SmoothingFactor = -0.1 },
			errorMsg: "smoothing_factor must be in [0, 1)",
		},
		{
			name:     "zero pitch sensitivity",
			mutate:   func(c *Config) { c.Tracking.PitchSensitivity = 0 },
			errorMsg: "pitch_sensitivity must be positive",
		},
		{
			name:     "dead zone swallows yaw range",
			mutate:   func(c *Config) { c.Tracking.DeadZone = 30 },
			errorMsg: "must be smaller than yaw_sensitivity",
		},
		{
			name:     "inverted volume range",
			mutate:   func(c *Config) { c.Tracking.MinVolume, c.Tracking.MaxVolume = 0.9, 0.4 },
			errorMsg: "cannot exceed max_volume",
		},
		{
			name:     "volume above unity",
			mutate:   func(c *Config) { c.Tracking.MaxVolume = 1.5 },
			errorMsg: "volume range must lie within [0, 1]",
		},
		{
			name:     "min channel out of range",
			mutate:   func(c *Config) { c.Tracking.MinChannel = 2 },
			errorMsg: "min_channel must be between 0 and 1",
		},
		{
			name:     "empty pw-cli binary",
			mutate:   func(c *Config) { c.PipeWire.Binary = "" },
			errorMsg: "binary cannot be empty",
		},
		{
			name:     "zero lookahead",
			mutate:   func(c *Config) { c.PipeWire.LookaheadLines = 0 },
			errorMsg: "lookahead_lines must be at least 1",
		},
		{
			name:     "http enabled without port",
			mutate:   func(c *Config) { c.HTTP.Enabled, c.HTTP.Port = true, 0 },
			errorMsg: "http port must be between 1 and 65535",
		},
		{
			name:     "unknown log level",
			mutate:   func(c *Config) { c.Logging.Level = "trace" },
			errorMsg: "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		validate    func(*Config) bool
	}{
		{
			name: "partial file keeps defaults",
			configYAML: `
server:
  udp_port: 5555
tracking:
  dead_zone: 2.5
`,
			validate: func(c *Config) bool {
				return c.Server.UDPPort == 5555 &&
					c.Server.BindAddress == "127.0.0.1" &&
					c.Tracking.DeadZone == 2.5 &&
					c.Tracking.SmoothingFactor == 0.75 &&
					c.PipeWire.Binary == "pw-cli"
			},
		},
		{
			name: "full file",
			configYAML: `
server:
  udp_port: 4242
  bind_address: "127.0.0.1"
  buffer_size: 4096
  update_interval: 33
tracking:
  smoothing_factor: 0.8
  yaw_sensitivity: 40
  pitch_sensitivity: 15
  dead_zone: 3
  min_volume: 0.2
  max_volume: 0.9
  min_channel: 0.1
  latency_window_size: 10
pipewire:
  binary: "/usr/bin/pw-cli"
  media_class: "Stream/Output/Audio"
  lookahead_lines: 30
  command_timeout: 500
http:
  enabled: true
  address: "127.0.0.1"
  port: 8080
logging:
  level: "debug"
  format: "json"
  output: "stdout"
  report_interval: 0
`,
			validate: func(c *Config) bool {
				return c.Server.GetUpdateInterval() == 33*time.Millisecond &&
					c.Tracking.YawSensitivity == 40 &&
					c.PipeWire.GetCommandTimeout() == 500*time.Millisecond &&
					c.HTTP.Enabled &&
					c.Logging.Format == "json"
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  udp_port: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "invalid values",
			configYAML: `
tracking:
  smoothing_factor: 1.0
`,
			expectError: true,
			errorMsg:    "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if !tt.validate(config) {
				t.Errorf("Validation failed for config: %+v", config)
			}
		})
	}
}

func TestConfigLoadWithoutFile(t *testing.T) {
	config, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults to load, got: %v", err)
	}
	if config.Server.UDPPort != 4242 {
		t.Errorf("Expected default port 4242, got %d", config.Server.UDPPort)
	}
}

func TestConfigLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestConfigEnvironmentOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  udp_port: 5000\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	t.Setenv("HEADPAN_UDP_PORT", "6000")
	t.Setenv("HEADPAN_DEAD_ZONE", "7.5")
	t.Setenv("HEADPAN_HTTP_ENABLED", "true")
	t.Setenv("HEADPAN_PW_CLI", "/opt/pw/bin/pw-cli")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	if config.Server.UDPPort != 6000 {
		t.Errorf("Expected env to override file port, got %d", config.Server.UDPPort)
	}
	if config.Tracking.DeadZone != 7.5 {
		t.Errorf("Expected dead zone 7.5, got %f", config.Tracking.DeadZone)
	}
	if !config.HTTP.Enabled {
		t.Errorf("Expected HTTP enabled from environment")
	}
	if config.PipeWire.Binary != "/opt/pw/bin/pw-cli" {
		t.Errorf("Expected pw-cli override, got %s", config.PipeWire.Binary)
	}
	if config.Tracking.YawSensitivity != 30 {
		t.Errorf("Expected untouched fields to keep defaults, got yaw sensitivity %f", config.Tracking.YawSensitivity)
	}
}

func TestLoadEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("HEADPAN_TEST_LOADENV=from-file\n"), 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	t.Setenv("HEADPAN_TEST_LOADENV", "")
	os.Unsetenv("HEADPAN_TEST_LOADENV")

	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if got := os.Getenv("HEADPAN_TEST_LOADENV"); got != "from-file" {
		t.Errorf("Expected value from .env file, got %q", got)
	}

	err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil || !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error for missing .env, got %v", err)
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("Failed to load shipped config: %v", err)
	}

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("configs/config.yaml drifted from defaults (-want +got):\n%s", diff)
	}
}
