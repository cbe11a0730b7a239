package reading

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		TimestampMillis:          1700000000123,
		PressureHPa:              1013.254,
		TemperaturePrimaryC:      21.5,
		TemperatureFromPressureC: 21.125,
		HumidityPercent:          40.123,
		Acceleration:             Vector{X: 9.807, Y: 0, Z: -0.012},
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 9.80665, want: 9.807},
		{in: 1013.2549, want: 1013.255},
		{in: -0.0004, want: 0},
		{in: -1.23456, want: -1.235},
		{in: 0.0005, want: 0.001},
		{in: 42, want: 42},
	}

	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := Round3(-0.0001); math.Signbit(got) {
		t.Error("Round3(-0.0001) returned negative zero")
	}
	if got := Round3(math.NaN()); !math.IsNaN(got) {
		t.Errorf("Round3(NaN) = %v", got)
	}
}

func TestSnapshot_Rounded(t *testing.T) {
	s := Snapshot{
		TimestampMillis: 5,
		PressureHPa:     1000.12345,
		HumidityPercent: 55.5555,
		Acceleration:    Vector{X: 1 * StandardGravity},
	}.Rounded()

	if s.PressureHPa != 1000.123 || s.HumidityPercent != 55.556 {
		t.Errorf("Rounded() = %+v", s)
	}
	if s.Acceleration.X != 9.807 {
		t.Errorf("Acceleration.X = %v, want 9.807", s.Acceleration.X)
	}
	if s.TimestampMillis != 5 {
		t.Errorf("TimestampMillis = %d", s.TimestampMillis)
	}
}

func TestEnvelope_JSONShape(t *testing.T) {
	env := NewEnvelope(sampleSnapshot(), "environment", "raspberrypi", "studio")

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{"time", "pressure", "temperature", "humidity", "acceleration", "measurement", "source", "location"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if len(generic) != 8 {
		t.Errorf("top-level keys = %d, want 8: %s", len(generic), data)
	}

	temp, ok := generic["temperature"].(map[string]any)
	if !ok {
		t.Fatalf("temperature is %T", generic["temperature"])
	}
	if temp["01"] != 21.5 || temp["02"] != 21.125 {
		t.Errorf("temperature = %v", temp)
	}

	accel, ok := generic["acceleration"].(map[string]any)
	if !ok {
		t.Fatalf("acceleration is %T", generic["acceleration"])
	}
	if accel["x"] != 9.807 || accel["z"] != -0.012 {
		t.Errorf("acceleration = %v", accel)
	}
	if generic["time"] != float64(1700000000123) {
		t.Errorf("time = %v", generic["time"])
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	want := NewEnvelope(sampleSnapshot(), "environment", "raspberrypi", "studio")

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Envelope
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestEnvelope_UnmarshalInvalid(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"time":"yesterday"}`), &env); err == nil {
		t.Error("Unmarshal() expected error for string time")
	}
}

func TestEnvelope_LineProtocol(t *testing.T) {
	env := NewEnvelope(sampleSnapshot(), "environment", "raspberrypi", "studio")

	line := env.LineProtocol()

	if !strings.HasPrefix(line, "environment,location=studio,source=raspberrypi ") {
		t.Errorf("line prefix = %q", line)
	}
	for _, field := range []string{"pressure=1013.254", "temperature_01=21.5", "temperature_02=21.125", "humidity=40.123", "acceleration_x=9.807"} {
		if !strings.Contains(line, field) {
			t.Errorf("line %q missing field %q", line, field)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(line), " 1700000000123") {
		t.Errorf("line %q does not end with millisecond timestamp", line)
	}
}
