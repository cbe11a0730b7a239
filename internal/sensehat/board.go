package sensehat

import (
	"context"
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
)

// Board reads all Sense HAT sensors. It implements sensor.Board.
//
// Thread Safety:
//   - Methods serialise bus access and are safe for concurrent use.
type Board struct {
	mu       sync.Mutex
	pressure *LPS25H
	humidity *HTS221
	accel    *LSM9DS1

	// closer releases the bus when the Board opened it.
	closer io.Closer
}

// Open initialises the periph host drivers and opens the Sense HAT sensors.
//
// Parameters:
//   - busName: periph I2C bus name (e.g. "1" or "/dev/i2c-1"); empty selects
//     the first available bus
//
// Returns:
//   - *Board: Ready to read; Close releases the bus
//   - error: Wraps ErrDeviceNotFound when the bus or a sensor is missing
func Open(busName string) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: i2c bus %q: %w", ErrDeviceNotFound, busName, err)
	}

	b, err := NewBoard(bus)
	if err != nil {
		bus.Close() //nolint:errcheck // already failing
		return nil, err
	}
	b.closer = bus
	return b, nil
}

// NewBoard probes and configures the three sensors on an open bus.
// The caller keeps ownership of bus.
func NewBoard(bus i2c.Bus) (*Board, error) {
	pressure, err := NewLPS25H(bus)
	if err != nil {
		return nil, err
	}
	humidity, err := NewHTS221(bus)
	if err != nil {
		return nil, err
	}
	accel, err := NewLSM9DS1(bus)
	if err != nil {
		return nil, err
	}
	return &Board{pressure: pressure, humidity: humidity, accel: accel}, nil
}

// Pressure implements sensor.Board.
func (b *Board) Pressure(ctx context.Context) (float64, error) {
	return b.readFloat(ctx, b.pressure.Pressure)
}

// Temperature implements sensor.Board using the humidity sensor.
func (b *Board) Temperature(ctx context.Context) (float64, error) {
	return b.readFloat(ctx, b.humidity.Temperature)
}

// TemperatureFromPressure implements sensor.Board.
func (b *Board) TemperatureFromPressure(ctx context.Context) (float64, error) {
	return b.readFloat(ctx, b.pressure.Temperature)
}

// Humidity implements sensor.Board.
func (b *Board) Humidity(ctx context.Context) (float64, error) {
	return b.readFloat(ctx, b.humidity.Humidity)
}

// AccelerometerRaw implements sensor.Board.
func (b *Board) AccelerometerRaw(ctx context.Context) (reading.Vector, error) {
	if err := ctx.Err(); err != nil {
		return reading.Vector{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accel.Acceleration()
}

func (b *Board) readFloat(ctx context.Context, read func() (float64, error)) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return read()
}

// Close releases the bus if Open created it.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closer == nil {
		return nil
	}
	err := b.closer.Close()
	b.closer = nil
	if err != nil {
		return fmt.Errorf("closing i2c bus: %w", err)
	}
	return nil
}
