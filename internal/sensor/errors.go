package sensor

import "errors"

// ErrReadFailed is returned when a sensor channel cannot be read.
// The wrapped message names the channel.
var ErrReadFailed = errors.New("sensor: read failed")

// ErrNonFinite is wrapped by ErrReadFailed when a channel returns NaN or ±Inf.
var ErrNonFinite = errors.New("sensor: non-finite value")
