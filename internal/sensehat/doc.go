// Package sensehat drives the Raspberry Pi Sense HAT.
//
// Sensors are reached over I2C through periph.io:
//
//	0x5C  LPS25H   pressure and temperature
//	0x5F  HTS221   humidity and temperature (factory calibrated)
//	0x6A  LSM9DS1  accelerometer
//
// The 8x8 LED matrix is exposed by the rpisense-fb kernel driver as a
// framebuffer named "RPi-Sense FB"; pixels are RGB565, little endian, row
// major. LEDMatrix writes frames to it and scrolls text with a 5x7 font.
package sensehat
