package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/command"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/logging"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/metrics"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/mqtt"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
)

// QoS levels. Readings are fire-and-forget.
const (
	readingsQoS byte = 0
	commandsQoS byte = 0
)

// Conn is the part of *mqtt.Client the publisher depends on.
type Conn interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte) error
	Events() <-chan mqtt.Event
	Done() <-chan struct{}
	State() mqtt.State
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(ctx context.Context, ep mqtt.Endpoint, opts mqtt.Options) (Conn, error)

// DialMQTT is the Dialer backed by mqtt.Connect.
func DialMQTT(ctx context.Context, ep mqtt.Endpoint, opts mqtt.Options) (Conn, error) {
	c, err := mqtt.Connect(ctx, ep, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CommandHandler handles an inbound command message.
type CommandHandler interface {
	Dispatch(ctx context.Context, topic string, payload []byte) command.Outcome
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Dial opens the connection. Defaults to DialMQTT.
	Dial Dialer

	// Options are passed to Dial. ClientID is generated once per process.
	Options mqtt.Options

	// TopicPrefix is normalized to end with "/".
	TopicPrefix string

	// LineProtocol mirrors each reading to <prefix>readings/influx.
	LineProtocol bool

	Commands CommandHandler
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
}

// Publisher owns the broker connection. It publishes readings and routes
// inbound commands to a CommandHandler.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Publisher struct {
	dial         Dialer
	opts         mqtt.Options
	topics       mqtt.Topics
	lineProtocol bool
	commands     CommandHandler
	metrics      *metrics.Metrics
	logger       *logging.Logger
	now          func() time.Time

	mu             sync.Mutex
	connecting     bool
	conn           Conn
	cancelDispatch context.CancelFunc
	dispatchDone   chan struct{}
	closed         bool
}

// NewPublisher creates a disconnected Publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	dial := cfg.Dial
	if dial == nil {
		dial = DialMQTT
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Publisher{
		dial:         dial,
		opts:         cfg.Options,
		topics:       mqtt.NewTopics(cfg.TopicPrefix),
		lineProtocol: cfg.LineProtocol,
		commands:     cfg.Commands,
		metrics:      cfg.Metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Topics returns the topics this publisher uses.
func (p *Publisher) Topics() mqtt.Topics {
	return p.topics
}

// ClientID returns the identifier presented to the broker.
func (p *Publisher) ClientID() string {
	return p.opts.ClientID
}

// Connect dials ep and starts the dispatch goroutine. Connecting an already
// connected publisher is a no-op.
//
// Parameters:
//   - ctx: Cancels the initial connection retries
//   - ep: Resolved broker endpoint
//
// Returns:
//   - error: Wraps mqtt.ErrConnectionFailed when every attempt fails
func (p *Publisher) Connect(ctx context.Context, ep mqtt.Endpoint) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher closed: %w", mqtt.ErrNotConnected)
	}
	if p.conn != nil || p.connecting {
		p.mu.Unlock()
		return nil
	}
	p.connecting = true
	p.mu.Unlock()

	p.logger.Info("connecting to broker", "broker", ep.String(), "client_id", p.opts.ClientID)
	conn, err := p.dial(ctx, ep, p.opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.connecting = false

	if err != nil {
		return err
	}
	if p.closed {
		conn.Close() //nolint:errcheck // Closed while dialling
		return fmt.Errorf("publisher closed: %w", mqtt.ErrNotConnected)
	}

	dispatchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.conn = conn
	p.cancelDispatch = cancel
	p.dispatchDone = make(chan struct{})
	go p.dispatchLoop(dispatchCtx, conn, p.dispatchDone)

	p.logger.Info("connected to broker", "broker", ep.Address())
	return nil
}

// dispatchLoop drains conn's events until ctx is cancelled or conn closes.
func (p *Publisher) dispatchLoop(ctx context.Context, conn Conn, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case ev := <-conn.Events():
			p.handleEvent(ctx, conn, ev)
		}
	}
}

func (p *Publisher) handleEvent(ctx context.Context, conn Conn, ev mqtt.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event handler panic recovered", "kind", ev.Kind.String(), "panic", r)
		}
	}()

	switch ev.Kind {
	case mqtt.EventConnected:
		p.metrics.SetConnected(true)
		topic := p.topics.Commands()
		if err := conn.Subscribe(topic, commandsQoS); err != nil {
			p.logger.Error("subscribing to command topic failed", "topic", topic, "error", err)
			return
		}
		p.logger.Info("subscribed to command topic", "topic", topic)

	case mqtt.EventConnectionLost:
		p.metrics.SetConnected(false)
		p.logger.Warn("broker connection lost, reconnecting", "error", ev.Err)

	case mqtt.EventMessage:
		if ev.Topic != p.topics.Commands() {
			p.logger.Debug("ignoring message on unexpected topic", "topic", ev.Topic)
			return
		}
		if p.commands == nil {
			return
		}
		p.commands.Dispatch(ctx, ev.Topic, ev.Payload)
	}
}

// Publish sends env to the readings topic at QoS 0 without waiting for
// acknowledgment. With the line-protocol mirror enabled the reading is
// also sent to the influx topic; failures there are only logged.
//
// Returns:
//   - error: mqtt.ErrNotConnected when disconnected, or a publish error
func (p *Publisher) Publish(env reading.Envelope) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		p.metrics.PublishFailed()
		return mqtt.ErrNotConnected
	}

	payload, err := json.Marshal(env)
	if err != nil {
		p.metrics.PublishFailed()
		return fmt.Errorf("encoding reading: %w", err)
	}

	if err := conn.Publish(p.topics.Readings(), payload, readingsQoS, false); err != nil {
		p.metrics.PublishFailed()
		return fmt.Errorf("publishing reading: %w", err)
	}
	p.metrics.ReadingPublished(p.now())

	if p.lineProtocol {
		line := env.LineProtocol()
		if err := conn.Publish(p.topics.ReadingsLineProtocol(), []byte(line), readingsQoS, false); err != nil {
			p.logger.Warn("publishing line protocol failed", "error", err)
		}
	}
	return nil
}

// State returns the connection state.
func (p *Publisher) State() mqtt.State {
	p.mu.Lock()
	conn, connecting := p.conn, p.connecting
	p.mu.Unlock()

	switch {
	case conn != nil:
		return conn.State()
	case connecting:
		return mqtt.StateConnecting
	default:
		return mqtt.StateDisconnected
	}
}

// Close stops event dispatch and disconnects. It is idempotent and safe
// when never connected.
//
// Parameters:
//   - ctx: Bounds how long Close waits for the disconnect
//
// Returns:
//   - error: ErrShutdownTimeout if ctx expires first
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn, cancel, dispatchDone := p.conn, p.cancelDispatch, p.dispatchDone
	p.mu.Unlock()

	if conn == nil {
		return nil
	}

	cancel()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		if err := conn.Close(); err != nil {
			p.logger.Warn("closing broker connection", "error", err)
		}
		<-dispatchDone
	}()

	select {
	case <-closed:
		p.metrics.SetConnected(false)
		p.logger.Info("broker connection closed")
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}
