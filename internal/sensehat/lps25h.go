package sensehat

import "periph.io/x/conn/v3/i2c"

// LPS25H registers and settings.
const (
	lps25hAddr   = 0x5C
	lps25hWhoAmI = 0xBD

	lps25hResConf  = 0x10
	lps25hCtrlReg1 = 0x20
	lps25hPressOut = 0x28
	lps25hTempOut  = 0x2B

	// 32 internal averages for pressure, 16 for temperature.
	lps25hResConfValue = 0x05
	// Power on, 25 Hz output data rate, block data update.
	lps25hCtrlReg1Value = 0xC4
)

// LPS25H is the pressure sensor.
type LPS25H struct {
	dev device
}

// NewLPS25H probes and configures the pressure sensor on bus.
func NewLPS25H(bus i2c.Bus) (*LPS25H, error) {
	d := newDevice(bus, lps25hAddr, "LPS25H")
	if err := d.probe(lps25hWhoAmI); err != nil {
		return nil, err
	}
	if err := d.configure(
		[2]byte{lps25hResConf, lps25hResConfValue},
		[2]byte{lps25hCtrlReg1, lps25hCtrlReg1Value},
	); err != nil {
		return nil, err
	}
	return &LPS25H{dev: d}, nil
}

// Pressure returns the pressure in hPa.
func (s *LPS25H) Pressure() (float64, error) {
	b, err := s.dev.read(lps25hPressOut|autoIncrement, 3)
	if err != nil {
		return 0, err
	}
	raw := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
	raw = raw << 8 >> 8 // sign-extend 24 bits
	return float64(raw) / 4096, nil
}

// Temperature returns the temperature in °C.
func (s *LPS25H) Temperature() (float64, error) {
	b, err := s.dev.read(lps25hTempOut|autoIncrement, 2)
	if err != nil {
		return 0, err
	}
	return 42.5 + float64(le16(b))/480, nil
}
