package sensehat

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// HTS221 registers and settings.
const (
	hts221Addr   = 0x5F
	hts221WhoAmI = 0xBC

	hts221AvConf   = 0x10
	hts221CtrlReg1 = 0x20
	hts221Out      = 0x28
	hts221Calib    = 0x30

	// 32 humidity and 16 temperature averages.
	hts221AvConfValue = 0x1B
	// Power on, block data update, 12.5 Hz.
	hts221CtrlReg1Value = 0x87
)

// hts221Calibration holds the two-point factory calibration.
type hts221Calibration struct {
	h0, h1       float64 // %rH
	t0, t1       float64 // °C
	h0Out, h1Out int16
	t0Out, t1Out int16
}

// parseHTS221Calibration decodes registers 0x30-0x3F.
func parseHTS221Calibration(c []byte) (hts221Calibration, error) {
	if len(c) != 16 {
		return hts221Calibration{}, fmt.Errorf("%w: %d bytes", ErrCalibration, len(c))
	}
	cal := hts221Calibration{
		h0:    float64(c[0]) / 2,
		h1:    float64(c[1]) / 2,
		t0:    float64(uint16(c[2])|uint16(c[5]&0x03)<<8) / 8,
		t1:    float64(uint16(c[3])|uint16(c[5]&0x0C)<<6) / 8,
		h0Out: le16(c[6:8]),
		h1Out: le16(c[10:12]),
		t0Out: le16(c[12:14]),
		t1Out: le16(c[14:16]),
	}
	if cal.h1Out == cal.h0Out || cal.t1Out == cal.t0Out {
		return hts221Calibration{}, fmt.Errorf("%w: reference outputs are equal", ErrCalibration)
	}
	return cal, nil
}

func (c hts221Calibration) humidity(raw int16) float64 {
	return c.h0 + (float64(raw)-float64(c.h0Out))*(c.h1-c.h0)/(float64(c.h1Out)-float64(c.h0Out))
}

func (c hts221Calibration) temperature(raw int16) float64 {
	return c.t0 + (float64(raw)-float64(c.t0Out))*(c.t1-c.t0)/(float64(c.t1Out)-float64(c.t0Out))
}

// HTS221 is the humidity sensor.
type HTS221 struct {
	dev device
	cal hts221Calibration
}

// NewHTS221 probes, configures and reads calibration from the humidity sensor.
func NewHTS221(bus i2c.Bus) (*HTS221, error) {
	d := newDevice(bus, hts221Addr, "HTS221")
	if err := d.probe(hts221WhoAmI); err != nil {
		return nil, err
	}
	if err := d.configure(
		[2]byte{hts221AvConf, hts221AvConfValue},
		[2]byte{hts221CtrlReg1, hts221CtrlReg1Value},
	); err != nil {
		return nil, err
	}

	raw, err := d.read(hts221Calib|autoIncrement, 16)
	if err != nil {
		return nil, err
	}
	cal, err := parseHTS221Calibration(raw)
	if err != nil {
		return nil, err
	}
	return &HTS221{dev: d, cal: cal}, nil
}

// outputs reads the raw humidity and temperature outputs.
func (s *HTS221) outputs() (hOut, tOut int16, err error) {
	b, err := s.dev.read(hts221Out|autoIncrement, 4)
	if err != nil {
		return 0, 0, err
	}
	return le16(b[0:2]), le16(b[2:4]), nil
}

// Humidity returns the relative humidity in percent.
func (s *HTS221) Humidity() (float64, error) {
	h, _, err := s.outputs()
	if err != nil {
		return 0, err
	}
	return s.cal.humidity(h), nil
}

// Temperature returns the temperature in °C.
func (s *HTS221) Temperature() (float64, error) {
	_, t, err := s.outputs()
	if err != nil {
		return 0, err
	}
	return s.cal.temperature(t), nil
}
