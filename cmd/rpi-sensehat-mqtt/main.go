// rpi-sensehat-mqtt - Sense HAT sensor broadcaster
//
// This is the main entry point. It reads the Raspberry Pi Sense HAT sensors
// on a fixed cycle and publishes each reading as JSON to an MQTT broker,
// while listening for commands that scroll text on the LED matrix.
//
// Configuration comes from built-in defaults, an optional YAML file named by
// RPI_SENSEHAT_MQTT_CONFIG, and RPI_SENSEHAT_MQTT_* environment overrides.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/api"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/broadcaster"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/command"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/display"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/config"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/database"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/logging"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/metrics"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/mqtt"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/sysinfo"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/journal"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/sensehat"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/sensor"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// diskPath is the filesystem whose usage the status endpoint reports.
const diskPath = "/"

func main() {
	// Cancel on Ctrl+C and on SIGTERM from systemd or docker stop.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting rpi-sensehat-mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err = logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", closeErr)
		}
	}()
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	identity := sysinfo.Identify(ctx)
	clientID := uuid.NewString()

	// Sensor board
	board, err := openBoard(cfg.Board, log)
	if err != nil {
		return fmt.Errorf("opening sensor board: %w", err)
	}
	reader := sensor.NewReader(board)
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			log.Error("error closing sensor board", "error", closeErr)
		}
	}()

	// Display worker. It outlives the service loop so the last queued
	// message can still render while the connection closes.
	sink, closeSink := openDisplay(cfg, log)
	defer closeSink()

	displayCtx, stopDisplay := context.WithCancel(context.Background())
	worker := display.NewWorker(sink, cfg.Display.QueueSize, log.With("component", "display"))
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(displayCtx)
	}()
	defer func() {
		stopDisplay()
		<-workerDone
	}()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// Command journal (optional)
	db, repo, closeJournal, err := openJournal(ctx, cfg.Journal, log)
	if err != nil {
		return fmt.Errorf("opening command journal: %w", err)
	}
	defer closeJournal()

	dispatcher := command.NewDispatcher(command.Deps{
		Sink:    worker,
		Journal: repo,
		Metrics: m,
		Logger:  log.With("component", "command"),
	})

	opts := mqtt.OptionsFromConfig(cfg.MQTT, clientID)
	opts.Source = identity.Hostname
	opts.Logger = log.With("component", "mqtt")

	publisher := broadcaster.NewPublisher(broadcaster.PublisherConfig{
		Options:      opts,
		TopicPrefix:  cfg.MQTT.TopicPrefix,
		LineProtocol: cfg.Streaming.LineProtocol,
		Commands:     dispatcher,
		Metrics:      m,
		Logger:       log.With("component", "publisher"),
	})

	svc, err := broadcaster.New(broadcaster.Deps{
		Config:    cfg,
		Reader:    reader,
		Publisher: publisher,
		Display:   worker,
		Metrics:   m,
		Logger:    log.With("component", "broadcaster"),
		Source:    identity.Hostname,
	})
	if err != nil {
		return fmt.Errorf("creating broadcaster: %w", err)
	}

	// Status server (optional)
	if cfg.Status.Enabled {
		srv, srvErr := api.New(api.Deps{
			Config:   cfg.Status,
			Logger:   log.With("component", "api"),
			Service:  svc,
			Metrics:  m,
			Gatherer: registry,
			Journal:  repo,
			Display:  worker,
			Identity: identity,
			Database: db,
			DiskPath: diskPath,
			Version:  version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating status server: %w", srvErr)
		}
		if srvErr = srv.Start(ctx); srvErr != nil {
			return fmt.Errorf("starting status server: %w", srvErr)
		}
		defer func() {
			log.Info("stopping status server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping status server", "error", closeErr)
			}
		}()
		log.Info("status server started", "address", srv.Addr())
	}

	log.Info("rpi-sensehat-mqtt started",
		"client_id", clientID,
		"source", identity.Hostname,
		"cycle", cfg.CycleDuration(),
	)

	if err := svc.Run(ctx); err != nil {
		return err
	}

	log.Info("rpi-sensehat-mqtt stopped")
	return nil
}

// openBoard returns the configured sensor board.
func openBoard(cfg config.BoardConfig, log *logging.Logger) (sensor.Board, error) {
	if cfg.Type == config.BoardSimulated {
		log.Info("using simulated sensor board")
		return sensor.NewSimulatedBoard(uint64(time.Now().UnixNano())), nil //nolint:gosec // seed only
	}

	board, err := sensehat.Open(cfg.I2CBus)
	if err != nil {
		return nil, err
	}
	log.Info("sense hat opened", "i2c_bus", cfg.I2CBus)
	return board, nil
}

// openDisplay returns the LED matrix when the display is enabled on real
// hardware, otherwise a sink that logs messages. The returned func releases
// the framebuffer.
func openDisplay(cfg *config.Config, log *logging.Logger) (display.Sink, func()) {
	fallback := display.LogSink{Logger: log.With("component", "display")}
	noop := func() {}

	if !cfg.Display.Enabled || cfg.Board.Type != config.BoardSenseHAT {
		return fallback, noop
	}

	// The first message renders at full brightness; low light applies after.
	matrix, err := sensehat.OpenLEDMatrix(cfg.Board.Framebuffer, sensehat.MatrixOptions{
		TextColour:  textColour(cfg.Display.TextColour),
		ScrollDelay: cfg.ScrollDelay(),
	})
	if err != nil {
		log.Warn("LED matrix unavailable, logging display messages instead", "error", err)
		return fallback, noop
	}
	if err := matrix.Clear(); err != nil {
		log.Warn("clearing LED matrix", "error", err)
	}

	closeMatrix := func() {
		if closeErr := matrix.Close(); closeErr != nil {
			log.Error("error closing LED matrix", "error", closeErr)
		}
	}
	return startupSink(matrix, cfg.Display), closeMatrix
}

// startupSink applies low light after the welcome message, or at once when
// there is no welcome.
func startupSink(matrix *sensehat.LEDMatrix, cfg config.DisplayConfig) display.Sink {
	if cfg.Welcome == "" {
		matrix.SetLowLight(cfg.LowLight)
		return matrix
	}
	return sensehat.NewStartupSink(matrix, cfg.LowLight)
}

// textColour converts a validated [r, g, b] triple.
func textColour(rgb []int) sensehat.Colour {
	if len(rgb) != 3 {
		return sensehat.Colour{R: 255, G: 255, B: 255}
	}
	return sensehat.Colour{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])} //nolint:gosec // range checked by Validate
}

// openJournal opens the SQLite command journal when a path is configured.
// The returned health checker is nil when the journal is disabled.
func openJournal(ctx context.Context, cfg config.JournalConfig, log *logging.Logger) (api.HealthChecker, journal.Repository, func(), error) {
	if cfg.Path == "" {
		log.Info("command journal disabled")
		return nil, journal.Disabled{}, func() {}, nil
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		log.Info("closing command journal")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing command journal", "error", closeErr)
		}
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("command journal ready", "path", cfg.Path)

	return db, journal.NewSQLiteRepository(db.DB), closeDB, nil
}

// getConfigPath returns the YAML config path from the environment.
// An empty path means defaults plus environment overrides only.
func getConfigPath() string {
	return os.Getenv(config.EnvConfigPath)
}
