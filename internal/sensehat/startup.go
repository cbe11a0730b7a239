package sensehat

import (
	"context"
	"sync"
)

// StartupSink scrolls the first message at full brightness, then switches
// the matrix to the configured low light mode for every later message.
// The welcome text is the first message shown after startup.
type StartupSink struct {
	matrix   *LEDMatrix
	lowLight bool
	once     sync.Once
}

// NewStartupSink wraps matrix. The matrix should be opened with LowLight
// false so the first message renders at full brightness.
func NewStartupSink(matrix *LEDMatrix, lowLight bool) *StartupSink {
	return &StartupSink{matrix: matrix, lowLight: lowLight}
}

// Show implements display.Sink.
func (s *StartupSink) Show(ctx context.Context, text string) error {
	defer s.once.Do(func() { s.matrix.SetLowLight(s.lowLight) })
	return s.matrix.Show(ctx, text)
}
