package sensehat

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// matrixSize is the LED matrix width and height.
	matrixSize = 8

	// frameBytes is one RGB565 frame.
	frameBytes = matrixSize * matrixSize * 2

	// framebufferName is reported by the rpisense-fb driver in sysfs.
	framebufferName = "RPi-Sense FB"

	// DefaultScrollDelay is the pause between two scroll steps.
	DefaultScrollDelay = 100 * time.Millisecond
)

// lowLightGamma maps 5-bit channel values when low light is on.
var lowLightGamma = [32]byte{
	0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2,
	2, 3, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 8, 9, 10,
}

// Colour is an 8-bit per channel RGB value.
type Colour struct {
	R, G, B uint8
}

// Frame is one image, row major: pixel (x, y) is Frame[y*8+x].
type Frame [matrixSize * matrixSize]Colour

// MatrixOptions configures an LEDMatrix.
type MatrixOptions struct {
	TextColour  Colour
	LowLight    bool
	ScrollDelay time.Duration
}

// LEDMatrix renders frames and scrolling text on the 8x8 LED matrix.
//
// Thread Safety:
//   - Frames are written under a mutex; one scroll runs at a time.
type LEDMatrix struct {
	mu   sync.Mutex
	fb   io.WriterAt
	opts MatrixOptions

	sleep func(ctx context.Context, d time.Duration) error
}

// FindFramebuffer returns the device path of the Sense HAT framebuffer.
//
// Parameters:
//   - sysfsRoot: Usually "/sys"; tests pass a temporary tree
//
// Returns:
//   - string: Device path such as /dev/fb1
//   - error: Wraps ErrDeviceNotFound when no framebuffer matches
func FindFramebuffer(sysfsRoot string) (string, error) {
	names, err := filepath.Glob(filepath.Join(sysfsRoot, "class", "graphics", "fb*", "name"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	for _, nameFile := range names {
		data, err := os.ReadFile(nameFile) // #nosec G304 -- sysfs path built from a glob
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == framebufferName {
			return filepath.Join("/dev", filepath.Base(filepath.Dir(nameFile))), nil
		}
	}
	return "", fmt.Errorf("%w: no %q framebuffer", ErrDeviceNotFound, framebufferName)
}

// OpenLEDMatrix opens the framebuffer at path. An empty path is resolved
// with FindFramebuffer("/sys").
func OpenLEDMatrix(path string, opts MatrixOptions) (*LEDMatrix, error) {
	if path == "" {
		found, err := FindFramebuffer("/sys")
		if err != nil {
			return nil, err
		}
		path = found
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0) // #nosec G304 -- device path from config or sysfs
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrDeviceNotFound, path, err)
	}
	return NewLEDMatrix(f, opts), nil
}

// NewLEDMatrix returns a matrix writing frames to fb at offset 0.
// If fb is an io.Closer, Close closes it.
func NewLEDMatrix(fb io.WriterAt, opts MatrixOptions) *LEDMatrix {
	if opts.ScrollDelay <= 0 {
		opts.ScrollDelay = DefaultScrollDelay
	}
	return &LEDMatrix{fb: fb, opts: opts, sleep: sleepContext}
}

// Clear switches every LED off.
func (m *LEDMatrix) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeFrame(&Frame{})
}

// Show implements display.Sink by scrolling text once across the matrix.
func (m *LEDMatrix) Show(ctx context.Context, text string) error {
	return m.ShowMessage(ctx, text)
}

// ShowMessage scrolls text right to left in the configured colour and
// clears the matrix afterwards. It returns early with ctx.Err() when ctx is
// cancelled.
func (m *LEDMatrix) ShowMessage(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols := textColumns(text)
	var frame Frame
	for offset := 0; offset+matrixSize <= len(cols); offset++ {
		renderColumns(&frame, cols[offset:offset+matrixSize], m.opts.TextColour)
		if err := m.writeFrame(&frame); err != nil {
			return err
		}
		if err := m.sleep(ctx, m.opts.ScrollDelay); err != nil {
			m.writeFrame(&Frame{}) //nolint:errcheck // Best effort clear on cancel
			return err
		}
	}
	return m.writeFrame(&Frame{})
}

// SetLowLight toggles low light mode for subsequent frames.
func (m *LEDMatrix) SetLowLight(on bool) {
	m.mu.Lock()
	m.opts.LowLight = on
	m.mu.Unlock()
}

// Close clears the matrix and closes the framebuffer when it is closable.
func (m *LEDMatrix) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clearErr := m.writeFrame(&Frame{})
	if c, ok := m.fb.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing framebuffer: %w", err)
		}
	}
	return clearErr
}

// writeFrame encodes and writes a frame. Callers hold m.mu.
func (m *LEDMatrix) writeFrame(frame *Frame) error {
	buf := encodeFrame(frame, m.opts.LowLight)
	if _, err := m.fb.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("writing framebuffer: %w", err)
	}
	return nil
}

// encodeFrame converts a frame to little-endian RGB565.
func encodeFrame(frame *Frame, lowLight bool) []byte {
	buf := make([]byte, frameBytes)
	for i, c := range frame {
		v := rgb565(c, lowLight)
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf
}

func rgb565(c Colour, lowLight bool) uint16 {
	r := uint16(c.R >> 3)
	g := uint16(c.G >> 2)
	b := uint16(c.B >> 3)
	if lowLight {
		r = uint16(lowLightGamma[r])
		g = uint16(lowLightGamma[g>>1]) << 1
		b = uint16(lowLightGamma[b])
	}
	return r<<11 | g<<5 | b
}

// renderColumns draws up to eight font columns into frame.
func renderColumns(frame *Frame, cols []byte, colour Colour) {
	*frame = Frame{}
	for x, col := range cols {
		for y := 0; y < matrixSize; y++ {
			if col&(1<<y) != 0 {
				frame[y*matrixSize+x] = colour
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
