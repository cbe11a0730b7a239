package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/display"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/config"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/sensehat"
)

// clearOverrides blanks the environment overrides that would change a test config.
func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TOPIC_PREFIX", "BROKER", "LOCATION", "MEASUREMENT", "CYCLE", "WELCOME",
		"BOARD", "LOGLEVEL", "LOGFORMAT", "LOGFILE", "JOURNAL_PATH", "STATUS_ADDR",
	} {
		t.Setenv("RPI_SENSEHAT_MQTT_"+key, "")
	}
}

// writeConfig writes content to a temporary YAML file and points the
// config environment variable at it.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(config.EnvConfigPath, path)
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	clearOverrides(t)
	t.Setenv(config.EnvConfigPath, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidValues verifies run fails when validation rejects the config.
func TestRun_InvalidValues(t *testing.T) {
	clearOverrides(t)
	writeConfig(t, `
streaming:
  cycle: -1
board:
  type: simulated
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with a negative cycle")
	}
}

// TestRun_InvalidBrokerStaysUp verifies an unusable broker URL degrades the
// service instead of stopping it, and that cancellation exits cleanly.
func TestRun_InvalidBrokerStaysUp(t *testing.T) {
	clearOverrides(t)
	writeConfig(t, `
mqtt:
  broker: "http://example.com"
board:
  type: simulated
display:
  enabled: false
logging:
  level: error
`)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want nil", err)
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Errorf("run() returned after %v, want it to stay up until cancelled", elapsed)
	}
}

// TestRun_JournalCreated verifies the journal database is created and migrated.
func TestRun_JournalCreated(t *testing.T) {
	clearOverrides(t)
	dbPath := filepath.Join(t.TempDir(), "data", "journal.db")
	writeConfig(t, `
mqtt:
  broker: "http://example.com"
board:
  type: simulated
journal:
  path: "`+dbPath+`"
logging:
  level: error
`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want nil", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("journal database not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies an empty path without the env var.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")

	if path := getConfigPath(); path != "" {
		t.Errorf("getConfigPath() = %q, want empty", path)
	}
}

// TestGetConfigPath_EnvOverride verifies env var override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	customPath := "/custom/config.yaml"
	t.Setenv(config.EnvConfigPath, customPath)

	if path := getConfigPath(); path != customPath {
		t.Errorf("getConfigPath() = %q, want %q", path, customPath)
	}
}

func TestTextColour(t *testing.T) {
	tests := []struct {
		name string
		rgb  []int
		want sensehat.Colour
	}{
		{name: "red", rgb: []int{255, 0, 0}, want: sensehat.Colour{R: 255}},
		{name: "mixed", rgb: []int{10, 20, 30}, want: sensehat.Colour{R: 10, G: 20, B: 30}},
		{name: "missing falls back to white", rgb: nil, want: sensehat.Colour{R: 255, G: 255, B: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textColour(tt.rgb); got != tt.want {
				t.Errorf("textColour(%v) = %+v, want %+v", tt.rgb, got, tt.want)
			}
		})
	}
}

func TestStartupSink(t *testing.T) {
	fb, err := os.CreateTemp(t.TempDir(), "fb")
	if err != nil {
		t.Fatalf("creating framebuffer file: %v", err)
	}
	matrix := sensehat.NewLEDMatrix(fb, sensehat.MatrixOptions{})
	defer matrix.Close() //nolint:errcheck // Test cleanup

	withWelcome := startupSink(matrix, config.DisplayConfig{Welcome: "Loaded!", LowLight: true})
	if _, ok := withWelcome.(*sensehat.StartupSink); !ok {
		t.Errorf("startupSink() with welcome = %T, want *sensehat.StartupSink", withWelcome)
	}

	withoutWelcome := startupSink(matrix, config.DisplayConfig{LowLight: true})
	if withoutWelcome != display.Sink(matrix) {
		t.Errorf("startupSink() without welcome = %T, want the matrix itself", withoutWelcome)
	}
}
