package sensehat

import (
	"periph.io/x/conn/v3/i2c"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
)

// LSM9DS1 accelerometer registers and settings.
const (
	lsm9ds1AccelAddr   = 0x6A
	lsm9ds1AccelWhoAmI = 0x68

	lsm9ds1CtrlReg6XL = 0x20
	lsm9ds1CtrlReg8   = 0x22
	lsm9ds1OutXL      = 0x28

	// 119 Hz, ±2 g full scale.
	lsm9ds1CtrlReg6XLValue = 0x60
	// Block data update, register auto-increment.
	lsm9ds1CtrlReg8Value = 0x44

	// g per LSB at ±2 g.
	lsm9ds1AccelSensitivity = 0.000061
)

// LSM9DS1 is the accelerometer part of the IMU.
type LSM9DS1 struct {
	dev device
}

// NewLSM9DS1 probes and configures the accelerometer on bus.
func NewLSM9DS1(bus i2c.Bus) (*LSM9DS1, error) {
	d := newDevice(bus, lsm9ds1AccelAddr, "LSM9DS1")
	if err := d.probe(lsm9ds1AccelWhoAmI); err != nil {
		return nil, err
	}
	if err := d.configure(
		[2]byte{lsm9ds1CtrlReg8, lsm9ds1CtrlReg8Value},
		[2]byte{lsm9ds1CtrlReg6XL, lsm9ds1CtrlReg6XLValue},
	); err != nil {
		return nil, err
	}
	return &LSM9DS1{dev: d}, nil
}

// Acceleration returns the acceleration per axis in g, in board coordinates.
// Auto-increment is set by CTRL_REG8, so the address has no 0x80 bit.
func (s *LSM9DS1) Acceleration() (reading.Vector, error) {
	b, err := s.dev.read(lsm9ds1OutXL, 6)
	if err != nil {
		return reading.Vector{}, err
	}
	// The IMU is mounted with x and y reversed relative to the board.
	return reading.Vector{
		X: -float64(le16(b[0:2])) * lsm9ds1AccelSensitivity,
		Y: -float64(le16(b[2:4])) * lsm9ds1AccelSensitivity,
		Z: float64(le16(b[4:6])) * lsm9ds1AccelSensitivity,
	}, nil
}
