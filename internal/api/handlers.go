package api

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/broadcaster"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/display"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/metrics"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/mqtt"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/sysinfo"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/journal"
)

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	MQTT    string `json:"mqtt"`

	// Journal is "ok" or "error"; omitted when the journal is disabled.
	Journal string `json:"journal,omitempty"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Timestamp     string             `json:"timestamp"`
	Version       string             `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Service       broadcaster.Status `json:"service"`
	Counters      metrics.Summary    `json:"counters"`
	Display       *display.Stats     `json:"display,omitempty"`
	Host          sysinfo.Identity   `json:"host"`
	Load          *sysinfo.Load      `json:"load,omitempty"`
	Runtime       RuntimeMetrics     `json:"runtime"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

const bytesPerMB = 1024 * 1024

// healthCheckTimeout bounds the journal query made by the health endpoint.
const healthCheckTimeout = 2 * time.Second

// handleHealth reports ok while the broker connection is up and the journal,
// when enabled, answers queries. Otherwise it returns 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.service.Status().State

	resp := HealthResponse{Status: "ok", Version: s.version, MQTT: state}
	healthy := state == mqtt.StateConnected.String()

	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.database.HealthCheck(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("journal health check failed", "error", err)
			resp.Journal = "error"
			healthy = false
		} else {
			resp.Journal = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStatus returns the full service status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatusResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Service:       s.service.Status(),
		Counters:      s.metrics.Summary(),
		Host:          s.identity,
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / bytesPerMB,
			NumGC:         mem.NumGC,
		},
	}

	if s.display != nil {
		stats := s.display.Stats()
		resp.Display = &stats
	}

	load, err := sysinfo.SampleLoad(r.Context(), s.diskPath)
	if err != nil {
		s.logger.Debug("host load partially unavailable", "error", err)
	}
	resp.Load = &load

	writeJSON(w, http.StatusOK, resp)
}

// handleListCommands returns journaled commands, newest first.
//
// Query parameters: outcome, limit (1-200), offset.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journal.Filter{Outcome: q.Get("outcome")}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.journal.List(r.Context(), filter)
	if errors.Is(err, journal.ErrDisabled) {
		writeNotFound(w, "command journal is disabled")
		return
	}
	if err != nil {
		s.logger.Error("listing command journal", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
