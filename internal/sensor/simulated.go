package sensor

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
)

// SimulatedBoard produces plausible indoor values for hosts without a Sense HAT.
//
// Values drift slowly on a daily sine with a little noise; the board lies
// flat, so the accelerometer reports about 1 g on the z axis.
type SimulatedBoard struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulatedBoard returns a SimulatedBoard seeded with seed.
func NewSimulatedBoard(seed uint64) *SimulatedBoard {
	return &SimulatedBoard{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

// dayPhase returns the position within the day in radians.
func (b *SimulatedBoard) dayPhase() float64 {
	t := b.now()
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return 2 * math.Pi * float64(secs) / 86400
}

func (b *SimulatedBoard) noise(scale float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return (b.rng.Float64()*2 - 1) * scale
}

// Pressure implements Board.
func (b *SimulatedBoard) Pressure(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 1013.25 + 4*math.Sin(b.dayPhase()) + b.noise(0.2), nil
}

// Temperature implements Board.
func (b *SimulatedBoard) Temperature(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 21 + 2*math.Sin(b.dayPhase()-math.Pi/2) + b.noise(0.1), nil
}

// TemperatureFromPressure implements Board. The pressure sensor runs a
// little cooler than the humidity sensor on the real board.
func (b *SimulatedBoard) TemperatureFromPressure(ctx context.Context) (float64, error) {
	t, err := b.Temperature(ctx)
	if err != nil {
		return 0, err
	}
	return t - 0.4, nil
}

// Humidity implements Board.
func (b *SimulatedBoard) Humidity(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h := 45 + 10*math.Sin(b.dayPhase()+math.Pi/3) + b.noise(0.5)
	return math.Max(0, math.Min(100, h)), nil
}

// AccelerometerRaw implements Board.
func (b *SimulatedBoard) AccelerometerRaw(ctx context.Context) (reading.Vector, error) {
	if err := ctx.Err(); err != nil {
		return reading.Vector{}, err
	}
	return reading.Vector{
		X: b.noise(0.002),
		Y: b.noise(0.002),
		Z: 1 + b.noise(0.002),
	}, nil
}

// Close implements Board.
func (b *SimulatedBoard) Close() error {
	return nil
}
