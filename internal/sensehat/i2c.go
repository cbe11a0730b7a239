package sensehat

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// Common register addresses.
const (
	regWhoAmI = 0x0F

	// autoIncrement makes ST sensors advance the register address on
	// multi-byte reads.
	autoIncrement = 0x80
)

// device is a register-addressed I2C peripheral.
type device struct {
	dev  *i2c.Dev
	name string
}

func newDevice(bus i2c.Bus, addr uint16, name string) device {
	return device{dev: &i2c.Dev{Bus: bus, Addr: addr}, name: name}
}

// probe checks the WHO_AM_I register.
func (d device) probe(want byte) error {
	got, err := d.read(regWhoAmI, 1)
	if err != nil {
		return fmt.Errorf("%w: %s at %#x: %w", ErrDeviceNotFound, d.name, d.dev.Addr, err)
	}
	if got[0] != want {
		return fmt.Errorf("%w: %s at %#x answered %#x, want %#x", ErrDeviceNotFound, d.name, d.dev.Addr, got[0], want)
	}
	return nil
}

// read reads n bytes starting at reg.
func (d device) read(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.dev.Tx([]byte{reg}, buf); err != nil {
		return nil, fmt.Errorf("%s: reading register %#x: %w", d.name, reg, err)
	}
	return buf, nil
}

// write sets reg to value.
func (d device) write(reg, value byte) error {
	if err := d.dev.Tx([]byte{reg, value}, nil); err != nil {
		return fmt.Errorf("%s: writing register %#x: %w", d.name, reg, err)
	}
	return nil
}

// configure writes register/value pairs in order.
func (d device) configure(pairs ...[2]byte) error {
	for _, p := range pairs {
		if err := d.write(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// le16 decodes a little-endian signed 16-bit value.
func le16(b []byte) int16 {
	return int16(uint16(b[0]) | uint16(b[1])<<8)
}
