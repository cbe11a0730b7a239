package mqtt

// EventKind identifies what an Event reports.
type EventKind int

// Event kinds.
const (
	// EventConnected is emitted after every CONNACK, initial or reconnect.
	EventConnected EventKind = iota + 1

	// EventConnectionLost is emitted when an established connection drops.
	EventConnectionLost

	// EventMessage carries an inbound message on a subscribed topic.
	EventMessage
)

// String returns the kind name for logging.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectionLost:
		return "connection_lost"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is a broker notification delivered through Client.Events.
//
// Paho callbacks only build events and enqueue them; all handling happens on
// the consumer's goroutine.
type Event struct {
	Kind EventKind

	// Topic and Payload are set for EventMessage.
	Topic   string
	Payload []byte

	// Err is set for EventConnectionLost.
	Err error
}

// emit enqueues ev without blocking. Events are dropped with a warning when
// the buffer is full or the client is closing.
func (c *Client) emit(ev Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.events <- ev:
	default:
		if logger := c.logger; logger != nil {
			logger.Warn("MQTT event dropped, queue full",
				"kind", ev.Kind.String(),
				"topic", ev.Topic,
			)
		}
	}
}
