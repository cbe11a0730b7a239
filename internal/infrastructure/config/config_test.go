package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every override so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TOPIC_PREFIX", "BROKER", "LOCATION", "MEASUREMENT", "CYCLE", "WELCOME",
		"BOARD", "LOGLEVEL", "LOGFORMAT", "LOGFILE", "JOURNAL_PATH", "STATUS_ADDR",
	} {
		t.Setenv(envPrefix+key, "")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker != "mqtt://test.mosquitto.org:1883" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.TopicPrefix != "sensehat" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "sensehat")
	}
	if cfg.MQTT.KeepAlive != 30 {
		t.Errorf("MQTT.KeepAlive = %d, want 30", cfg.MQTT.KeepAlive)
	}
	if cfg.CycleDuration() != 60*time.Second {
		t.Errorf("CycleDuration() = %v, want 60s", cfg.CycleDuration())
	}
	if cfg.Streaming.Location != "studio" || cfg.Streaming.Measurement != "environment" {
		t.Errorf("Streaming = %+v", cfg.Streaming)
	}
	if cfg.Display.Welcome != "Loaded!" {
		t.Errorf("Display.Welcome = %q, want %q", cfg.Display.Welcome, "Loaded!")
	}
	if cfg.Journal.Path != "" {
		t.Errorf("Journal.Path = %q, want disabled", cfg.Journal.Path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	clearEnv(t)

	content := `
mqtt:
  broker: "ws://user:secret@broker.local:9001"
  topic_prefix: "lab/"
streaming:
  cycle: 15
  location: "kitchen"
  line_protocol: true
board:
  type: simulated
status:
  enabled: true
  port: 8181
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker != "ws://user:secret@broker.local:9001" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.TopicPrefix != "lab/" {
		t.Errorf("MQTT.TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.Streaming.Cycle != 15 || cfg.Streaming.Location != "kitchen" || !cfg.Streaming.LineProtocol {
		t.Errorf("Streaming = %+v", cfg.Streaming)
	}
	// Values missing from the file keep their defaults.
	if cfg.Streaming.Measurement != "environment" {
		t.Errorf("Streaming.Measurement = %q, want default", cfg.Streaming.Measurement)
	}
	if cfg.Board.Type != BoardSimulated {
		t.Errorf("Board.Type = %q, want %q", cfg.Board.Type, BoardSimulated)
	}
	if !cfg.Status.Enabled || cfg.Status.Port != 8181 {
		t.Errorf("Status = %+v", cfg.Status)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPI_SENSEHAT_MQTT_TOPIC_PREFIX", "greenhouse")
	t.Setenv("RPI_SENSEHAT_MQTT_BROKER", "mqtt://10.0.0.2:1883")
	t.Setenv("RPI_SENSEHAT_MQTT_LOCATION", "attic")
	t.Setenv("RPI_SENSEHAT_MQTT_MEASUREMENT", "climate")
	t.Setenv("RPI_SENSEHAT_MQTT_CYCLE", "5")
	t.Setenv("RPI_SENSEHAT_MQTT_WELCOME", "Hi")
	t.Setenv("RPI_SENSEHAT_MQTT_LOGLEVEL", "debug")
	t.Setenv("RPI_SENSEHAT_MQTT_BOARD", "Simulated")
	t.Setenv("RPI_SENSEHAT_MQTT_LOGFILE", "/var/log/rpi_broadcaster/rpi_sensehat_mqtt.log")
	t.Setenv("RPI_SENSEHAT_MQTT_STATUS_ADDR", ":9200")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.TopicPrefix != "greenhouse" {
		t.Errorf("MQTT.TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.Broker != "mqtt://10.0.0.2:1883" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.Streaming.Location != "attic" || cfg.Streaming.Measurement != "climate" {
		t.Errorf("Streaming = %+v", cfg.Streaming)
	}
	if cfg.CycleDuration() != 5*time.Second {
		t.Errorf("CycleDuration() = %v, want 5s", cfg.CycleDuration())
	}
	if cfg.Display.Welcome != "Hi" {
		t.Errorf("Display.Welcome = %q", cfg.Display.Welcome)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "file" || cfg.Logging.File == "" {
		t.Errorf("Logging = %+v, want file output", cfg.Logging)
	}
	if cfg.Board.Type != BoardSimulated {
		t.Errorf("Board.Type = %q", cfg.Board.Type)
	}
	if !cfg.Status.Enabled || cfg.Status.Host != "" || cfg.Status.Port != 9200 {
		t.Errorf("Status = %+v", cfg.Status)
	}
}

func TestLoad_InvalidCycleEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPI_SENSEHAT_MQTT_CYCLE", "sixty")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error for non-numeric cycle")
	}
	if !strings.Contains(err.Error(), "CYCLE") {
		t.Errorf("error %q does not name the variable", err)
	}
}

// An invalid broker URL must not fail loading; the endpoint resolver handles it.
func TestLoad_InvalidBrokerIsNotFatal(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPI_SENSEHAT_MQTT_BROKER", "http://example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MQTT.Broker != "http://example.com" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{addr: ":9200", wantPort: 9200},
		{addr: "0.0.0.0:9105", wantHost: "0.0.0.0", wantPort: 9105},
		{addr: "[::1]:80", wantHost: "::1", wantPort: 80},
		{addr: "::1:80", wantErr: true},
		{addr: "localhost", wantErr: true},
		{addr: "localhost:http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port, err := splitHostPort(tt.addr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("splitHostPort(%q) = (%q, %d), want error", tt.addr, host, port)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitHostPort(%q) error = %v", tt.addr, err)
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("splitHostPort(%q) = (%q, %d), want (%q, %d)", tt.addr, host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestLoad_MalformedStatusAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPI_SENSEHAT_MQTT_STATUS_ADDR", "::1:80")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() expected error for malformed status address")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty prefix", mutate: func(c *Config) { c.MQTT.TopicPrefix = "/" }, wantErr: "topic_prefix"},
		{name: "zero cycle", mutate: func(c *Config) { c.Streaming.Cycle = 0 }, wantErr: "streaming.cycle"},
		{name: "empty measurement", mutate: func(c *Config) { c.Streaming.Measurement = "" }, wantErr: "measurement"},
		{name: "unknown board", mutate: func(c *Config) { c.Board.Type = "astro-pi" }, wantErr: "board.type"},
		{name: "bad colour length", mutate: func(c *Config) { c.Display.TextColour = []int{1, 2} }, wantErr: "text_colour"},
		{name: "bad colour value", mutate: func(c *Config) { c.Display.TextColour = []int{1, 2, 300} }, wantErr: "text_colour"},
		{name: "file output without path", mutate: func(c *Config) { c.Logging.Output = "file" }, wantErr: "logging.file"},
		{name: "status port out of range", mutate: func(c *Config) {
			c.Status.Enabled = true
			c.Status.Port = 70000
		}, wantErr: "status.port"},
		{name: "reconnect delays inverted", mutate: func(c *Config) {
			c.MQTT.Reconnect.InitialDelay = 10
			c.MQTT.Reconnect.MaxDelay = 1
		}, wantErr: "reconnect"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()
	cfg.ShutdownTimeout = 3
	cfg.Display.ScrollSpeed = 80

	if got := cfg.ShutdownDuration(); got != 3*time.Second {
		t.Errorf("ShutdownDuration() = %v, want 3s", got)
	}
	if got := cfg.ScrollDelay(); got != 80*time.Millisecond {
		t.Errorf("ScrollDelay() = %v, want 80ms", got)
	}
}
