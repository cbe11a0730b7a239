package metrics

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rpi_sensehat"

// Summary is a point-in-time copy of the counters.
type Summary struct {
	ReadingsPublished uint64            `json:"readings_published"`
	PublishFailures   uint64            `json:"publish_failures"`
	ReadFailures      uint64            `json:"read_failures"`
	Commands          map[string]uint64 `json:"commands"`
	Connected         bool              `json:"connected"`
	LastPublish       time.Time         `json:"last_publish,omitzero"`
}

// Metrics records service activity.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A nil *Metrics is a no-op.
type Metrics struct {
	readingsPublished prometheus.Counter
	publishFailures   prometheus.Counter
	readFailures      prometheus.Counter
	commands          *prometheus.CounterVec
	connected         prometheus.Gauge
	lastPublish       prometheus.Gauge

	// Mirrors of the Prometheus values for Summary.
	published   atomic.Uint64
	pubFailed   atomic.Uint64
	readFailed  atomic.Uint64
	isConnected atomic.Bool
	lastPubMs   atomic.Int64

	commandsMu    sync.Mutex
	commandCounts map[string]uint64
}

// New registers the service collectors on reg.
//
// Returns:
//   - *Metrics: Ready to record
//   - error: If a collector clashes with a different one of the same name
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{commandCounts: make(map[string]uint64)}
	var err error

	if m.readingsPublished, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_published_total",
		Help:      "Sensor readings handed to the MQTT client",
	})); err != nil {
		return nil, err
	}
	if m.publishFailures, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_failures_total",
		Help:      "Readings dropped because publishing failed",
	})); err != nil {
		return nil, err
	}
	if m.readFailures, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sensor_read_failures_total",
		Help:      "Poll cycles skipped because a sensor read failed",
	})); err != nil {
		return nil, err
	}
	if m.commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Inbound commands by dispatch outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.connected, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mqtt_connected",
		Help:      "1 while the broker connection is up",
	})); err != nil {
		return nil, err
	}
	if m.lastPublish, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_publish_timestamp_seconds",
		Help:      "Unix time of the last published reading",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg, returning the already registered collector when
// an identical one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("registering metric: %w", err)
	}
	return c, nil
}

// ReadingPublished records a successful publish at t.
func (m *Metrics) ReadingPublished(t time.Time) {
	if m == nil {
		return
	}
	m.readingsPublished.Inc()
	m.published.Add(1)
	m.lastPublish.Set(float64(t.UnixMilli()) / 1000)
	m.lastPubMs.Store(t.UnixMilli())
}

// PublishFailed records a dropped reading.
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
	m.pubFailed.Add(1)
}

// ReadFailed records a skipped poll cycle.
func (m *Metrics) ReadFailed() {
	if m == nil {
		return
	}
	m.readFailures.Inc()
	m.readFailed.Add(1)
}

// CommandDispatched records one command outcome.
func (m *Metrics) CommandDispatched(outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(outcome).Inc()

	m.commandsMu.Lock()
	m.commandCounts[outcome]++
	m.commandsMu.Unlock()
}

// SetConnected records the broker connection state.
func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
	m.isConnected.Store(up)
}

// Summary returns a copy of the counters.
func (m *Metrics) Summary() Summary {
	if m == nil {
		return Summary{Commands: map[string]uint64{}}
	}

	m.commandsMu.Lock()
	commands := make(map[string]uint64, len(m.commandCounts))
	for k, v := range m.commandCounts {
		commands[k] = v
	}
	m.commandsMu.Unlock()

	s := Summary{
		ReadingsPublished: m.published.Load(),
		PublishFailures:   m.pubFailed.Load(),
		ReadFailures:      m.readFailed.Load(),
		Commands:          commands,
		Connected:         m.isConnected.Load(),
	}
	if ms := m.lastPubMs.Load(); ms != 0 {
		s.LastPublish = time.UnixMilli(ms).UTC()
	}
	return s
}
