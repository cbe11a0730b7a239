// Package broadcaster runs the sensor-to-MQTT pipeline.
//
// A [Service] owns the lifecycle:
//
//	svc, err := broadcaster.New(deps)
//	err = svc.Run(ctx) // blocks until ctx is cancelled
//
// Run resolves the broker endpoint, connects the [Publisher], then polls the
// sensor reader once per cycle and publishes each reading. Inbound commands
// are handled by the publisher's dispatch goroutine, which drains the MQTT
// client's event channel and re-subscribes to the command topic after every
// (re)connect.
//
// An invalid broker URL does not stop the process: Run logs the error and
// idles until cancelled. Connection exhaustion, repeated sensor failures and
// an overrun shutdown are returned as errors.
package broadcaster
