package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps paho.mqtt.golang for the sensor broadcaster.
//
// It provides the connection lifecycle, publishing, subscriptions and an
// event channel that replaces paho's callbacks for consumers.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Paho callbacks never touch consumer state; they only enqueue Events.
type Client struct {
	client   pahomqtt.Client
	endpoint Endpoint
	opts     Options

	state atomic.Int32

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// logger for warnings and panic logging (optional).
	logger Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// pahoFactory creates the underlying paho client. Replaced in tests.
type pahoFactory func(*pahomqtt.ClientOptions) pahomqtt.Client

// Connect establishes a connection to the broker at ep.
//
// It performs the following setup:
//  1. Builds paho options (broker URL, credentials, keepalive, LWT)
//  2. Attempts the initial connection up to opts.MaxAttempts times,
//     waiting with exponential backoff between attempts
//  3. Publishes the retained online status once connected
//
// After the first success paho reconnects automatically; every CONNACK is
// reported as EventConnected on Events.
//
// Parameters:
//   - ctx: Cancels the retry loop
//   - ep: Resolved broker endpoint
//   - opts: Client options
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: Wraps ErrConnectionFailed when all attempts fail or ctx is cancelled
func Connect(ctx context.Context, ep Endpoint, opts Options) (*Client, error) {
	return connect(ctx, ep, opts, pahomqtt.NewClient)
}

func connect(ctx context.Context, ep Endpoint, opts Options, factory pahoFactory) (*Client, error) {
	c := newClient(ep, opts)
	c.client = factory(c.buildClientOptions())

	if err := c.connectWithBackoff(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// newClient builds an unconnected Client.
func newClient(ep Endpoint, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		endpoint: ep,
		opts:     opts,
		events:   make(chan Event, opts.EventBuffer),
		done:     make(chan struct{}),
		logger:   opts.Logger,
	}
}

// connectWithBackoff runs the bounded initial connection loop.
func (c *Client) connectWithBackoff(ctx context.Context) error {
	c.setState(StateConnecting)

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(attempt-1, c.opts.InitialDelay, c.opts.MaxDelay)
			if logger := c.logger; logger != nil {
				logger.Warn("MQTT connection attempt failed, retrying",
					"broker", c.endpoint.String(),
					"attempt", attempt-1,
					"retry_in", delay.String(),
					"error", lastErr,
				)
			}
			if err := sleepContext(ctx, delay); err != nil {
				c.setState(StateDisconnected)
				return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
			}
		}

		lastErr = c.connectOnce()
		if lastErr == nil {
			c.setState(StateConnected)
			return nil
		}
	}

	c.setState(StateDisconnected)
	return fmt.Errorf("%w: %d attempts to %s: %w", ErrConnectionFailed, c.opts.MaxAttempts, c.endpoint.String(), lastErr)
}

// connectOnce performs a single connection attempt.
func (c *Client) connectOnce() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.opts.ConnectTimeout) {
		return fmt.Errorf("timeout after %v", c.opts.ConnectTimeout)
	}
	return token.Error()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// handleConnect is called by paho when the connection is established.
func (c *Client) handleConnect() {
	if c.isClosing() {
		return
	}
	c.setState(StateConnected)

	if c.opts.StatusTopic != "" {
		// Tokens are never waited on inside paho callbacks.
		c.client.Publish(c.opts.StatusTopic, statusQoS, true, c.statusPayload(statusOnline, ""))
	}

	c.emit(Event{Kind: EventConnected})
}

// handleConnectionLost is called by paho when an established connection drops.
func (c *Client) handleConnectionLost(err error) {
	if c.isClosing() {
		return
	}
	c.setState(StateDisconnected)
	c.emit(Event{Kind: EventConnectionLost, Err: err})
}

// Events returns the channel broker notifications are delivered on.
// The channel is never closed; select on Done to detect Close.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Done is closed when Close starts.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// State returns the current connection state.
func (c *Client) State() State {
	if c == nil {
		return StateDisconnected
	}
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) isClosing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Stops event delivery
//  2. Publishes the graceful offline status (different from the LWT payload)
//  3. Disconnects with a short quiesce period
//
// Close is idempotent and safe on a nil or never-connected Client.
//
// Returns:
//   - error: Always nil; disconnect problems are not actionable at shutdown
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		wasConnected := c.IsConnected()
		c.setState(StateShuttingDown)
		close(c.done)

		if wasConnected && c.opts.StatusTopic != "" {
			token := c.client.Publish(c.opts.StatusTopic, statusQoS, true, c.statusPayload(statusOffline, "graceful_shutdown"))
			token.WaitTimeout(defaultPublishTimeout)
		}

		c.client.Disconnect(defaultDisconnectQuiesce)
		c.setState(StateDisconnected)
	})

	return nil
}

// IsConnected reports whether the client is connected and not shutting down.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.State() == StateConnected && c.client.IsConnected()
}
