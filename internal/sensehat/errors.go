package sensehat

import "errors"

var (
	// ErrDeviceNotFound is returned when a sensor does not answer with the
	// expected identity or the LED framebuffer cannot be located.
	ErrDeviceNotFound = errors.New("sensehat: device not found")

	// ErrCalibration is returned when HTS221 calibration data is unusable.
	ErrCalibration = errors.New("sensehat: invalid calibration data")
)
