package command

import (
	"context"
	"errors"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/display"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/journal"
)

// Outcome is the result of dispatching one command.
type Outcome string

// Dispatch outcomes.
const (
	OutcomeDisplayed     Outcome = "displayed"
	OutcomeMalformed     Outcome = "malformed"
	OutcomeUnrecognized  Outcome = "unrecognized"
	OutcomeDisplayFailed Outcome = "display_failed"
)

// journalTimeout bounds a single journal write.
const journalTimeout = 2 * time.Second

// Metrics counts dispatch outcomes.
type Metrics interface {
	CommandDispatched(outcome string)
}

// Logger is the subset of logging.Logger used by the dispatcher.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Deps are the dispatcher's collaborators. Sink is required; the rest are
// optional.
type Deps struct {
	Sink    display.Sink
	Journal journal.Repository
	Metrics Metrics
	Logger  Logger
}

// Dispatcher routes parsed commands to the display sink.
type Dispatcher struct {
	sink    display.Sink
	journal journal.Repository
	metrics Metrics
	logger  Logger
	now     func() time.Time
}

// NewDispatcher creates a dispatcher. A nil Journal disables journaling.
func NewDispatcher(deps Deps) *Dispatcher {
	j := deps.Journal
	if j == nil {
		j = journal.Disabled{}
	}
	return &Dispatcher{
		sink:    deps.Sink,
		journal: j,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

// Dispatch handles one inbound message. It never returns an error: every
// failure is logged, journaled and reflected in the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, payload []byte) Outcome {
	entry := &journal.Entry{
		Topic:      topic,
		Payload:    string(payload),
		ReceivedAt: d.now().UTC(),
	}

	cmd, err := Parse(payload)
	switch {
	case errors.Is(err, ErrMalformed):
		entry.Outcome, entry.Error = string(OutcomeMalformed), err.Error()
		d.warn("dropping malformed command", "topic", topic, "error", err)
	case err != nil:
		entry.Outcome, entry.Error = string(OutcomeUnrecognized), err.Error()
		d.warn("dropping unrecognized command", "topic", topic, "error", err)
	default:
		entry.Message = cmd.LEDWall
		if err := d.sink.Show(ctx, cmd.LEDWall); err != nil {
			entry.Outcome, entry.Error = string(OutcomeDisplayFailed), err.Error()
			d.warn("display rejected command", "text", cmd.LEDWall, "error", err)
		} else {
			entry.Outcome = string(OutcomeDisplayed)
			if d.logger != nil {
				d.logger.Info("command dispatched to display", "text", cmd.LEDWall)
			}
		}
	}

	d.record(ctx, entry)
	if d.metrics != nil {
		d.metrics.CommandDispatched(entry.Outcome)
	}
	return Outcome(entry.Outcome)
}

func (d *Dispatcher) record(ctx context.Context, entry *journal.Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	if err := d.journal.Record(ctx, entry); err != nil && d.logger != nil {
		d.logger.Error("failed to journal command", "error", err)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
