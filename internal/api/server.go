package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/broadcaster"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/display"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/config"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/logging"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/metrics"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/sysinfo"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/journal"
)

// Server timeouts. Responses are small and local.
const (
	gracefulShutdownTimeout = 5 * time.Second
	readTimeout             = 5 * time.Second
	writeTimeout            = 10 * time.Second
	idleTimeout             = 60 * time.Second
)

// StatusSource reports what the broadcaster is doing.
type StatusSource interface {
	Status() broadcaster.Status
}

// DisplayStats reports the display queue counters.
type DisplayStats interface {
	Stats() display.Stats
}

// HealthChecker reports whether a backing store answers queries.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	Config  config.StatusConfig
	Logger  *logging.Logger
	Service StatusSource

	// Optional.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Journal  journal.Repository
	Display  DisplayStats

	// Database is checked by /api/v1/health when the journal is enabled.
	Database HealthChecker
	Identity sysinfo.Identity

	// DiskPath is the filesystem whose usage /status reports.
	DiskPath string
	Version  string
}

// Server is the HTTP status server.
type Server struct {
	cfg      config.StatusConfig
	logger   *logging.Logger
	service  StatusSource
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	journal  journal.Repository
	display  DisplayStats
	database HealthChecker
	identity sysinfo.Identity
	diskPath string
	version  string
	started  time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a status server. It does not listen until Start.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If Logger or Service is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("status source is required")
	}

	j := deps.Journal
	if j == nil {
		j = journal.Disabled{}
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		service:  deps.Service,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		journal:  j,
		display:  deps.Display,
		database: deps.Database,
		identity: deps.Identity,
		diskPath: deps.DiskPath,
		version:  deps.Version,
		started:  time.Now(),
	}, nil
}

// Start binds the listen address and serves in a background goroutine.
// Binding errors (port in use) are returned here rather than logged later.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("status server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.logger.Info("status server listening", "address", ln.Addr().String())
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}(s.server)

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server, waiting briefly for in-flight
// requests. Safe to call when never started.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status server: %w", err)
	}
	return nil
}

// promErrorLogger adapts the service logger to promhttp.Logger.
type promErrorLogger struct {
	logger *logging.Logger
}

func (l promErrorLogger) Println(v ...any) {
	l.logger.Error("metrics handler error", "detail", fmt.Sprint(v...))
}
