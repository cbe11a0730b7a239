package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names. The prefix matches the variables used by the
// systemd units already deployed on the boards.
const (
	envPrefix = "RPI_SENSEHAT_MQTT_"

	// EnvConfigPath names the optional YAML config file.
	EnvConfigPath = envPrefix + "CONFIG"
)

// Board types.
const (
	BoardSenseHAT  = "sensehat"
	BoardSimulated = "simulated"
)

// Config is the root configuration structure.
// Values come from defaults, then the optional YAML file, then the environment.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Streaming StreamingConfig `yaml:"streaming"`
	Board     BoardConfig     `yaml:"board"`
	Display   DisplayConfig   `yaml:"display"`
	Logging   LoggingConfig   `yaml:"logging"`
	Journal   JournalConfig   `yaml:"journal"`
	Status    StatusConfig    `yaml:"status"`

	// ShutdownTimeout bounds how long closing the broker connection may take (seconds).
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	// Broker is a URL of the form scheme://[user[:password]@]host:port.
	// Only the mqtt and ws schemes are accepted.
	Broker         string              `yaml:"broker"`
	TopicPrefix    string              `yaml:"topic_prefix"`
	KeepAlive      int                 `yaml:"keep_alive"`
	ConnectTimeout int                 `yaml:"connect_timeout"`
	Reconnect      MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// StreamingConfig controls the read-publish loop.
type StreamingConfig struct {
	// Cycle is the pause between two sensor polls, in seconds.
	Cycle       int    `yaml:"cycle"`
	Measurement string `yaml:"measurement"`
	Location    string `yaml:"location"`

	// MaxReadFailures is the number of consecutive failed sensor reads
	// tolerated before the loop gives up.
	MaxReadFailures int `yaml:"max_read_failures"`

	// LineProtocol additionally publishes each reading in InfluxDB line protocol.
	LineProtocol bool `yaml:"line_protocol"`
}

// BoardConfig selects the sensor board implementation.
type BoardConfig struct {
	Type string `yaml:"type"`

	// I2CBus is the periph bus name; empty selects the first available bus.
	I2CBus string `yaml:"i2c_bus"`

	// Framebuffer forces the LED matrix device path (e.g. /dev/fb1).
	// Empty means autodetect.
	Framebuffer string `yaml:"framebuffer"`
}

// DisplayConfig contains LED matrix settings.
type DisplayConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Welcome  string `yaml:"welcome"`
	LowLight bool   `yaml:"low_light"`

	// ScrollSpeed is the delay between two scroll steps, in milliseconds.
	ScrollSpeed int   `yaml:"scroll_speed"`
	TextColour  []int `yaml:"text_colour"`
	QueueSize   int   `yaml:"queue_size"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// JournalConfig contains the SQLite command journal settings.
// The journal is disabled when Path is empty.
type JournalConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// StatusConfig contains the local status HTTP server settings.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is not empty
//  3. Environment variables
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for none
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the historical defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:         "mqtt://test.mosquitto.org:1883",
			TopicPrefix:    "sensehat",
			KeepAlive:      30,
			ConnectTimeout: 10,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     30,
				MaxAttempts:  5,
			},
		},
		Streaming: StreamingConfig{
			Cycle:           60,
			Measurement:     "environment",
			Location:        "studio",
			MaxReadFailures: 5,
		},
		Board: BoardConfig{
			Type: BoardSenseHAT,
		},
		Display: DisplayConfig{
			Enabled:     true,
			Welcome:     "Loaded!",
			LowLight:    true,
			ScrollSpeed: 100,
			TextColour:  []int{255, 255, 255},
			QueueSize:   4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Journal: JournalConfig{
			WALMode:     true,
			BusyTimeout: 5,
		},
		Status: StatusConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9105,
		},
		ShutdownTimeout: 10,
	}
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// applyEnvOverrides applies RPI_SENSEHAT_MQTT_* overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(envPrefix + "TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}
	if v := os.Getenv(envPrefix + "BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}

	if v := os.Getenv(envPrefix + "LOCATION"); v != "" {
		cfg.Streaming.Location = v
	}
	if v := os.Getenv(envPrefix + "MEASUREMENT"); v != "" {
		cfg.Streaming.Measurement = v
	}
	if v := os.Getenv(envPrefix + "CYCLE"); v != "" {
		cycle, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCYCLE: %w", envPrefix, err)
		}
		cfg.Streaming.Cycle = cycle
	}

	if v := os.Getenv(envPrefix + "WELCOME"); v != "" {
		cfg.Display.Welcome = v
	}
	if v := os.Getenv(envPrefix + "BOARD"); v != "" {
		cfg.Board.Type = strings.ToLower(v)
	}

	if v := os.Getenv(envPrefix + "LOGLEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOGFORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(envPrefix + "LOGFILE"); v != "" {
		cfg.Logging.Output = "file"
		cfg.Logging.File = v
	}

	if v := os.Getenv(envPrefix + "JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	if v := os.Getenv(envPrefix + "STATUS_ADDR"); v != "" {
		host, port, err := splitHostPort(v)
		if err != nil {
			return fmt.Errorf("%sSTATUS_ADDR: %w", envPrefix, err)
		}
		cfg.Status.Enabled = true
		cfg.Status.Host = host
		cfg.Status.Port = port
	}

	return nil
}

// splitHostPort parses "host:port" where host may be empty.
func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return host, port, nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if strings.Trim(c.MQTT.TopicPrefix, "/") == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if c.MQTT.KeepAlive < 1 {
		errs = append(errs, "mqtt.keep_alive must be at least 1 second")
	}
	if c.MQTT.ConnectTimeout < 1 {
		errs = append(errs, "mqtt.connect_timeout must be at least 1 second")
	}
	if c.MQTT.Reconnect.InitialDelay < 0 || c.MQTT.Reconnect.MaxDelay < c.MQTT.Reconnect.InitialDelay {
		errs = append(errs, "mqtt.reconnect delays must satisfy 0 <= initial_delay <= max_delay")
	}
	if c.MQTT.Reconnect.MaxAttempts < 1 {
		errs = append(errs, "mqtt.reconnect.max_attempts must be at least 1")
	}

	if c.Streaming.Cycle < 1 {
		errs = append(errs, "streaming.cycle must be at least 1 second")
	}
	if c.Streaming.Measurement == "" {
		errs = append(errs, "streaming.measurement is required")
	}
	if c.Streaming.MaxReadFailures < 1 {
		errs = append(errs, "streaming.max_read_failures must be at least 1")
	}

	switch c.Board.Type {
	case BoardSenseHAT, BoardSimulated:
	default:
		errs = append(errs, fmt.Sprintf("board.type %q must be %q or %q", c.Board.Type, BoardSenseHAT, BoardSimulated))
	}

	if c.Display.ScrollSpeed < 1 {
		errs = append(errs, "display.scroll_speed must be at least 1 millisecond")
	}
	if len(c.Display.TextColour) != 3 {
		errs = append(errs, "display.text_colour must have exactly 3 components")
	} else {
		for _, v := range c.Display.TextColour {
			if v < 0 || v > 255 {
				errs = append(errs, "display.text_colour components must be between 0 and 255")
				break
			}
		}
	}
	if c.Display.QueueSize < 1 {
		errs = append(errs, "display.queue_size must be at least 1")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File == "" {
		errs = append(errs, "logging.file is required when logging.output is file")
	}

	if c.Status.Enabled && (c.Status.Port < 1 || c.Status.Port > 65535) {
		errs = append(errs, "status.port must be between 1 and 65535")
	}

	if c.ShutdownTimeout < 1 {
		errs = append(errs, "shutdown_timeout must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// CycleDuration returns the streaming cycle as a Duration.
func (c *Config) CycleDuration() time.Duration {
	return time.Duration(c.Streaming.Cycle) * time.Second
}

// ShutdownDuration returns the shutdown timeout as a Duration.
func (c *Config) ShutdownDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// ScrollDelay returns the LED scroll step delay as a Duration.
func (c *Config) ScrollDelay() time.Duration {
	return time.Duration(c.Display.ScrollSpeed) * time.Millisecond
}
