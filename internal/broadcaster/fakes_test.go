package broadcaster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/mqtt"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/sensor"
)

// publishedMsg records one Publish call on fakeConn.
type publishedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeConn stands in for *mqtt.Client.
type fakeConn struct {
	mu           sync.Mutex
	published    []publishedMsg
	subscribed   []string
	publishErr   error
	subscribeErr error
	closeCalls   int

	// closeBlock, when set, holds Close until it is closed.
	closeBlock chan struct{}

	events    chan mqtt.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events: make(chan mqtt.Event, 16),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) Publish(topic string, payload []byte, qos byte, retained bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, publishedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (c *fakeConn) Subscribe(topic string, _ byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return c.subscribeErr
	}
	c.subscribed = append(c.subscribed, topic)
	return nil
}

func (c *fakeConn) Events() <-chan mqtt.Event { return c.events }
func (c *fakeConn) Done() <-chan struct{}     { return c.done }

func (c *fakeConn) State() mqtt.State {
	select {
	case <-c.done:
		return mqtt.StateDisconnected
	default:
		return mqtt.StateConnected
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closeCalls++
	block := c.closeBlock
	c.mu.Unlock()

	if block != nil {
		<-block
	}
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) messages() []publishedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishedMsg(nil), c.published...)
}

func (c *fakeConn) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.subscribed...)
}

func (c *fakeConn) closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// dialerFor returns a Dialer that hands out conn and counts calls.
func dialerFor(conn *fakeConn, calls *int) Dialer {
	var mu sync.Mutex
	return func(context.Context, mqtt.Endpoint, mqtt.Options) (Conn, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return conn, nil
	}
}

// fakeSink records display requests.
type fakeSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSink) Show(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSink) shown() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// fakeReader returns a fixed snapshot, or fails while failing is set.
type fakeReader struct {
	mu      sync.Mutex
	calls   int
	failing bool
}

func (r *fakeReader) ReadAll(context.Context) (reading.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failing {
		return reading.Snapshot{}, errors.Join(sensor.ErrReadFailed, errors.New("pressure: i2c timeout"))
	}
	return reading.Snapshot{
		TimestampMillis:          1700000000000 + int64(r.calls),
		PressureHPa:              1013.25,
		TemperaturePrimaryC:      21.5,
		TemperatureFromPressureC: 21.125,
		HumidityPercent:          40.5,
		Acceleration:             reading.Vector{X: 9.807},
	}, nil
}

func (r *fakeReader) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
