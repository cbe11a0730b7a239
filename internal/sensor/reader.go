package sensor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
)

// Channel names used in read errors.
const (
	ChannelPressure                = "pressure"
	ChannelTemperature             = "temperature"
	ChannelTemperatureFromPressure = "temperature_from_pressure"
	ChannelHumidity                = "humidity"
	ChannelAccelerometer           = "accelerometer"
)

// Reader takes snapshots from a Board.
type Reader struct {
	board Board
	now   func() time.Time
}

// NewReader returns a Reader over board.
func NewReader(board Board) *Reader {
	return &Reader{board: board, now: time.Now}
}

// ReadAll polls every channel once and returns a rounded snapshot.
//
// Accelerometer values are converted from g to m/s² before rounding. The
// snapshot is stamped with the wall-clock time of the poll in milliseconds.
//
// Parameters:
//   - ctx: Cancels the poll between channels
//
// Returns:
//   - reading.Snapshot: The rounded snapshot
//   - error: Wraps ErrReadFailed and names the failing channel; a NaN or
//     infinite value also wraps ErrNonFinite
func (r *Reader) ReadAll(ctx context.Context) (reading.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return reading.Snapshot{}, err
	}

	var (
		snap reading.Snapshot
		err  error
	)

	if snap.PressureHPa, err = r.board.Pressure(ctx); err != nil {
		return reading.Snapshot{}, readError(ChannelPressure, err)
	}
	if snap.TemperaturePrimaryC, err = r.board.Temperature(ctx); err != nil {
		return reading.Snapshot{}, readError(ChannelTemperature, err)
	}
	if snap.TemperatureFromPressureC, err = r.board.TemperatureFromPressure(ctx); err != nil {
		return reading.Snapshot{}, readError(ChannelTemperatureFromPressure, err)
	}
	if snap.HumidityPercent, err = r.board.Humidity(ctx); err != nil {
		return reading.Snapshot{}, readError(ChannelHumidity, err)
	}

	g, err := r.board.AccelerometerRaw(ctx)
	if err != nil {
		return reading.Snapshot{}, readError(ChannelAccelerometer, err)
	}
	snap.Acceleration = reading.Vector{
		X: g.X * reading.StandardGravity,
		Y: g.Y * reading.StandardGravity,
		Z: g.Z * reading.StandardGravity,
	}

	if err := checkFinite(snap); err != nil {
		return reading.Snapshot{}, err
	}

	snap.TimestampMillis = r.now().UnixMilli()
	return snap.Rounded(), nil
}

// checkFinite rejects snapshots that cannot be encoded as JSON numbers.
func checkFinite(snap reading.Snapshot) error {
	values := []struct {
		channel string
		v       float64
	}{
		{ChannelPressure, snap.PressureHPa},
		{ChannelTemperature, snap.TemperaturePrimaryC},
		{ChannelTemperatureFromPressure, snap.TemperatureFromPressureC},
		{ChannelHumidity, snap.HumidityPercent},
		{ChannelAccelerometer, snap.Acceleration.X},
		{ChannelAccelerometer, snap.Acceleration.Y},
		{ChannelAccelerometer, snap.Acceleration.Z},
	}
	for _, val := range values {
		if math.IsNaN(val.v) || math.IsInf(val.v, 0) {
			return readError(val.channel, fmt.Errorf("%w: %v", ErrNonFinite, val.v))
		}
	}
	return nil
}

func readError(channel string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrReadFailed, channel, err)
}

// Close releases the underlying board.
func (r *Reader) Close() error {
	return r.board.Close()
}
