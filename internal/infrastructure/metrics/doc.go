// Package metrics exposes service counters to Prometheus and to the status
// endpoint.
//
// All collectors live on a caller-supplied registry so tests and the status
// server never touch the global default registry. Registering twice on the
// same registry reuses the existing collectors.
package metrics
