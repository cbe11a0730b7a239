package reading

import (
	"encoding/json"
	"math"
)

// StandardGravity converts accelerometer g values to m/s².
const StandardGravity = 9.80665

// Vector is a three-axis value.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Snapshot is one poll of every sensor channel.
type Snapshot struct {
	// TimestampMillis is the Unix time of the poll in milliseconds.
	TimestampMillis int64

	PressureHPa float64

	// TemperaturePrimaryC comes from the humidity sensor,
	// TemperatureFromPressureC from the pressure sensor.
	TemperaturePrimaryC      float64
	TemperatureFromPressureC float64

	HumidityPercent float64

	// Acceleration is in m/s².
	Acceleration Vector
}

// Rounded returns a copy with every value rounded to three decimals.
func (s Snapshot) Rounded() Snapshot {
	return Snapshot{
		TimestampMillis:          s.TimestampMillis,
		PressureHPa:              Round3(s.PressureHPa),
		TemperaturePrimaryC:      Round3(s.TemperaturePrimaryC),
		TemperatureFromPressureC: Round3(s.TemperatureFromPressureC),
		HumidityPercent:          Round3(s.HumidityPercent),
		Acceleration: Vector{
			X: Round3(s.Acceleration.X),
			Y: Round3(s.Acceleration.Y),
			Z: Round3(s.Acceleration.Z),
		},
	}
}

// Round3 rounds v half away from zero to three decimals.
func Round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// Envelope is a Snapshot tagged for publishing.
type Envelope struct {
	Snapshot

	Measurement string
	Source      string
	Location    string
}

// NewEnvelope wraps s with the publishing tags.
func NewEnvelope(s Snapshot, measurement, source, location string) Envelope {
	return Envelope{
		Snapshot:    s,
		Measurement: measurement,
		Source:      source,
		Location:    location,
	}
}

// envelopeJSON is the wire shape of an Envelope.
type envelopeJSON struct {
	Time         int64           `json:"time"`
	Pressure     float64         `json:"pressure"`
	Temperature  temperatureJSON `json:"temperature"`
	Humidity     float64         `json:"humidity"`
	Acceleration Vector          `json:"acceleration"`
	Measurement  string          `json:"measurement"`
	Source       string          `json:"source"`
	Location     string          `json:"location"`
}

type temperatureJSON struct {
	Primary      float64 `json:"01"`
	FromPressure float64 `json:"02"`
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		Time:     e.TimestampMillis,
		Pressure: e.PressureHPa,
		Temperature: temperatureJSON{
			Primary:      e.TemperaturePrimaryC,
			FromPressure: e.TemperatureFromPressureC,
		},
		Humidity:     e.HumidityPercent,
		Acceleration: e.Acceleration,
		Measurement:  e.Measurement,
		Source:       e.Source,
		Location:     e.Location,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire envelopeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Envelope{
		Snapshot: Snapshot{
			TimestampMillis:          wire.Time,
			PressureHPa:              wire.Pressure,
			TemperaturePrimaryC:      wire.Temperature.Primary,
			TemperatureFromPressureC: wire.Temperature.FromPressure,
			HumidityPercent:          wire.Humidity,
			Acceleration:             wire.Acceleration,
		},
		Measurement: wire.Measurement,
		Source:      wire.Source,
		Location:    wire.Location,
	}
	return nil
}
