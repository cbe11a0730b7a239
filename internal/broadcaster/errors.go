package broadcaster

import "errors"

// ErrShutdownTimeout is returned by Run when closing the broker connection
// takes longer than the configured shutdown timeout.
var ErrShutdownTimeout = errors.New("broadcaster: shutdown timed out")
