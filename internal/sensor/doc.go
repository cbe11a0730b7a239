// Package sensor reads a Snapshot from a sensor board.
//
// Board abstracts the hardware: the Sense HAT driver in package sensehat and
// SimulatedBoard for hosts without the HAT both implement it. Reader turns
// board values into a rounded reading.Snapshot and reports the first failing
// channel as an error wrapping ErrReadFailed.
package sensor
