// Package config handles loading and validating the sensor broadcaster configuration.
//
// This package manages:
//   - Default values matching the historical environment-only deployment
//   - Loading an optional YAML file
//   - Overriding with RPI_SENSEHAT_MQTT_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Broker credentials travel inside the broker URL; prefer setting
//     RPI_SENSEHAT_MQTT_BROKER in the service environment over the YAML file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("RPI_SENSEHAT_MQTT_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker)
//
// The broker URL is deliberately not validated here. The endpoint resolver in
// the mqtt package decides whether publishing is possible, so a bad URL leaves
// the process running in a degraded state instead of failing startup.
package config
