// Package api implements the optional HTTP status server.
//
// This package provides:
//   - GET /api/v1/health: liveness with the broker connection state and,
//     when the journal is enabled, a database check
//   - GET /api/v1/status: service, counters, display queue and host load
//   - GET /api/v1/commands: recent entries from the command journal
//   - GET /metrics: Prometheus exposition
//   - Middleware stack (request ID, logging, recovery)
//
// The server is read-only and binds to 127.0.0.1 by default. It is off
// unless status.enabled is set or RPI_SENSEHAT_MQTT_STATUS_ADDR is given.
//
//	server, err := api.New(deps)
//	err = server.Start(ctx)
//	defer server.Close()
package api
