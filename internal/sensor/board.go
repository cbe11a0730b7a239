package sensor

import (
	"context"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
)

// Board provides raw sensor values.
//
// Implementations must be safe for use from a single goroutine at a time;
// Reader never calls a Board concurrently.
type Board interface {
	// Pressure returns the barometric pressure in hPa.
	Pressure(ctx context.Context) (float64, error)

	// Temperature returns the temperature in °C measured by the humidity sensor.
	Temperature(ctx context.Context) (float64, error)

	// TemperatureFromPressure returns the temperature in °C measured by the
	// pressure sensor.
	TemperatureFromPressure(ctx context.Context) (float64, error)

	// Humidity returns the relative humidity in percent.
	Humidity(ctx context.Context) (float64, error)

	// AccelerometerRaw returns the acceleration per axis in g.
	AccelerometerRaw(ctx context.Context) (reading.Vector, error)

	// Close releases the hardware.
	Close() error
}
