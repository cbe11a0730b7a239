package reading

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Point converts the envelope into an InfluxDB point.
//
// The measurement name is the envelope's Measurement; source and location
// become tags and every sensor value becomes a field.
func (e Envelope) Point() *write.Point {
	return write.NewPoint(
		e.Measurement,
		map[string]string{
			"source":   e.Source,
			"location": e.Location,
		},
		map[string]interface{}{
			"pressure":       e.PressureHPa,
			"temperature_01": e.TemperaturePrimaryC,
			"temperature_02": e.TemperatureFromPressureC,
			"humidity":       e.HumidityPercent,
			"acceleration_x": e.Acceleration.X,
			"acceleration_y": e.Acceleration.Y,
			"acceleration_z": e.Acceleration.Z,
		},
		time.UnixMilli(e.TimestampMillis),
	)
}

// LineProtocol renders the envelope as one line of InfluxDB line protocol
// with millisecond precision.
//
// Example:
//
//	environment,location=studio,source=raspberrypi acceleration_x=0,...,pressure=1013.25 1700000000000
func (e Envelope) LineProtocol() string {
	return write.PointToLineProtocol(e.Point(), time.Millisecond)
}
