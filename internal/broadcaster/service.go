package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/display"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/config"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/logging"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/metrics"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/infrastructure/mqtt"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/reading"
	"github.com/mirkodcomparetti/rpi-sensehat-mqtt/internal/sensor"
)

// Reader produces sensor snapshots.
type Reader interface {
	ReadAll(ctx context.Context) (reading.Snapshot, error)
}

// Deps holds everything a Service needs. Display and Metrics are optional.
type Deps struct {
	Config    *config.Config
	Reader    Reader
	Publisher *Publisher
	Display   display.Sink
	Metrics   *metrics.Metrics
	Logger    *logging.Logger

	// Source is the host name attached to every reading.
	Source string
}

// Status describes what the service is doing, for the status endpoint.
type Status struct {
	State     string `json:"state"`
	Streaming bool   `json:"streaming"`
	Degraded  bool   `json:"degraded"`
	ClientID  string `json:"client_id"`
	Broker    string `json:"broker"`
	Source    string `json:"source"`
	Readings  string `json:"readings_topic"`
	Commands  string `json:"commands_topic"`
	Cycle     int    `json:"cycle_seconds"`
}

// Service runs the read-publish loop.
type Service struct {
	cfg       *config.Config
	reader    Reader
	publisher *Publisher
	display   display.Sink
	metrics   *metrics.Metrics
	logger    *logging.Logger
	source    string

	cycle           time.Duration
	shutdownTimeout time.Duration

	streaming atomic.Bool
	degraded  atomic.Bool
}

// New validates deps and builds a Service.
func New(deps Deps) (*Service, error) {
	if deps.Config == nil {
		return nil, errors.New("broadcaster: config is required")
	}
	if deps.Reader == nil {
		return nil, errors.New("broadcaster: reader is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("broadcaster: publisher is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		cfg:       deps.Config,
		reader:    deps.Reader,
		publisher: deps.Publisher,
		display:   deps.Display,
		metrics:   deps.Metrics,
		logger:    logger,
		source:    deps.Source,

		cycle:           deps.Config.CycleDuration(),
		shutdownTimeout: deps.Config.ShutdownDuration(),
	}, nil
}

// Run connects to the broker and streams readings until ctx is cancelled.
//
// Returns:
//   - nil after a clean shutdown, including the degraded mode entered when
//     the broker URL is invalid
//   - an error wrapping mqtt.ErrConnectionFailed when the initial connect
//     is exhausted
//   - an error wrapping sensor.ErrReadFailed after too many consecutive
//     read failures
//   - ErrShutdownTimeout (possibly joined with the above) when closing the
//     connection overruns the shutdown timeout
func (s *Service) Run(ctx context.Context) error {
	ep, err := mqtt.ParseEndpoint(s.cfg.MQTT.Broker)
	if err != nil {
		s.degraded.Store(true)
		s.logger.Error("invalid broker endpoint, publishing disabled", "error", err)
		<-ctx.Done()
		return nil
	}

	s.showWelcome(ctx)

	if err := s.publisher.Connect(ctx, ep); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connecting to broker: %w", err)
	}

	s.logger.Info("streaming readings",
		"topic", s.publisher.Topics().Readings(),
		"cycle", s.cycle.String(),
		"location", s.cfg.Streaming.Location,
	)
	s.streaming.Store(true)
	streamErr := s.stream(ctx)
	s.streaming.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.publisher.Close(shutdownCtx); err != nil {
		s.logger.Error("shutdown incomplete", "timeout", s.shutdownTimeout.String(), "error", err)
		return errors.Join(streamErr, err)
	}
	return streamErr
}

// stream repeats read, publish, wait until ctx is done or reads keep failing.
func (s *Service) stream(ctx context.Context) error {
	maxFailures := s.cfg.Streaming.MaxReadFailures
	failures := 0

	timer := time.NewTimer(s.cycle)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			s.metrics.ReadFailed()
			s.logger.Warn("sensor read failed, skipping cycle",
				"error", err,
				"consecutive_failures", failures,
			)
			if failures >= maxFailures {
				return fmt.Errorf("%d consecutive sensor read failures: %w", failures, err)
			}
		} else {
			failures = 0
		}

		timer.Reset(s.cycle)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// poll reads and publishes one snapshot. Only read errors are returned;
// publish errors are logged and the reading is dropped.
func (s *Service) poll(ctx context.Context) error {
	snap, err := s.reader.ReadAll(ctx)
	if err != nil {
		return err
	}

	env := reading.NewEnvelope(snap, s.cfg.Streaming.Measurement, s.source, s.cfg.Streaming.Location)
	if err := s.publisher.Publish(env); err != nil {
		s.logger.Warn("dropping reading", "error", err)
		return nil
	}
	s.logger.Debug("reading published", "time", snap.TimestampMillis)
	return nil
}

func (s *Service) showWelcome(ctx context.Context) {
	if s.display == nil || s.cfg.Display.Welcome == "" {
		return
	}
	if err := s.display.Show(ctx, s.cfg.Display.Welcome); err != nil {
		s.logger.Warn("welcome message not shown", "error", err)
	}
}

// Status reports the service state.
func (s *Service) Status() Status {
	broker := s.cfg.MQTT.Broker
	if ep, err := mqtt.ParseEndpoint(broker); err == nil {
		broker = ep.String()
	} else {
		broker = "invalid"
	}
	topics := s.publisher.Topics()
	return Status{
		State:     s.publisher.State().String(),
		Streaming: s.streaming.Load(),
		Degraded:  s.degraded.Load(),
		ClientID:  s.publisher.ClientID(),
		Broker:    broker,
		Source:    s.source,
		Readings:  topics.Readings(),
		Commands:  topics.Commands(),
		Cycle:     s.cfg.Streaming.Cycle,
	}
}

// Compile-time check that the sensor reader satisfies Reader.
var _ Reader = (*sensor.Reader)(nil)
