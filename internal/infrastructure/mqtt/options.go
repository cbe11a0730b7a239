package mqtt

import (
	"encoding/json"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 30 * time.Second

	// defaultConnectTimeout is the maximum time to wait for one connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for acknowledged operations.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultEventBuffer is the capacity of the Events channel.
	defaultEventBuffer = 64

	// statusQoS is used for the LWT and online/offline status messages.
	statusQoS = 1

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2
)

// Status payload values.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// Options controls how Connect talks to the broker.
type Options struct {
	// ClientID identifies this process to the broker. Generated once per process.
	ClientID string

	// Source is the host name reported in status payloads.
	Source string

	KeepAlive      time.Duration
	ConnectTimeout time.Duration

	// Initial connection retry policy. Attempts below 1 mean a single attempt.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int

	// StatusTopic receives retained online/offline payloads and the LWT.
	// Empty disables status publishing.
	StatusTopic string

	// EventBuffer is the Events channel capacity.
	EventBuffer int

	Logger Logger
}

// OptionsFromConfig builds Options from the MQTT configuration.
//
// Parameters:
//   - cfg: MQTT configuration
//   - clientID: Per-process client identifier
//
// Returns:
//   - Options: Ready to pass to Connect; StatusTopic derives from the topic prefix
func OptionsFromConfig(cfg config.MQTTConfig, clientID string) Options {
	return Options{
		ClientID:       clientID,
		KeepAlive:      time.Duration(cfg.KeepAlive) * time.Second,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
		InitialDelay:   time.Duration(cfg.Reconnect.InitialDelay) * time.Second,
		MaxDelay:       time.Duration(cfg.Reconnect.MaxDelay) * time.Second,
		MaxAttempts:    cfg.Reconnect.MaxAttempts,
		StatusTopic:    NewTopics(cfg.TopicPrefix).Status(),
		EventBuffer:    defaultEventBuffer,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.KeepAlive <= 0 {
		o.KeepAlive = defaultKeepAlive
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = defaultEventBuffer
	}
	return o
}

// buildClientOptions creates paho MQTT options for ep.
//
// This configures:
//   - Broker URL (tcp:// or ws:// from the endpoint scheme)
//   - Client ID and URL-embedded credentials
//   - Auto-reconnect after the first successful connection
//   - Last Will and Testament on the status topic
//   - Clean session mode
func (c *Client) buildClientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(c.endpoint.BrokerURL())
	opts.SetClientID(c.opts.ClientID)

	if c.endpoint.HasCredentials() {
		opts.SetUsername(c.endpoint.Username)
		opts.SetPassword(c.endpoint.Password)
	}

	opts.SetCleanSession(true)

	// Initial attempts are driven by Connect; paho only reconnects once up.
	opts.SetConnectRetry(false)
	opts.SetAutoReconnect(true)
	if c.opts.MaxDelay > 0 {
		opts.SetMaxReconnectInterval(c.opts.MaxDelay)
	}

	opts.SetConnectTimeout(c.opts.ConnectTimeout)
	opts.SetKeepAlive(c.opts.KeepAlive)

	if c.opts.StatusTopic != "" {
		opts.SetBinaryWill(c.opts.StatusTopic, c.statusPayload(statusOffline, "unexpected_disconnect"), statusQoS, true)
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.setState(StateConnecting)
	})

	return opts
}

// statusMessage is the retained payload on the status topic.
type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Source    string `json:"source,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusPayload creates the JSON payload for a status message.
func (c *Client) statusPayload(status, reason string) []byte {
	data, err := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  c.opts.ClientID,
		Source:    c.opts.Source,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Marshalling a struct of strings cannot fail.
		return []byte(`{"status":"` + status + `"}`)
	}
	return data
}

// backoffDelay returns the wait before retry number attempt (1-based):
// initial doubled per attempt and capped at maxDelay.
func backoffDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 1 || initial <= 0 {
		return 0
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if maxDelay > 0 && delay >= maxDelay {
			return maxDelay
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}
