package display

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrQueueFull is returned by Worker.Show when the queue has no room.
var ErrQueueFull = errors.New("display: queue full")

// DefaultQueueSize is used when NewWorker gets a non-positive size.
const DefaultQueueSize = 8

// Sink renders text on some output. Implementations may block for as long
// as rendering takes but must return when ctx is cancelled.
type Sink interface {
	Show(ctx context.Context, text string) error
}

// Logger is the subset of logging.Logger used here.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogSink logs messages instead of displaying them.
type LogSink struct {
	Logger Logger
}

// Show logs text at info level.
func (s LogSink) Show(_ context.Context, text string) error {
	if s.Logger != nil {
		s.Logger.Info("display message", "text", text)
	}
	return nil
}

// Stats are the Worker's lifetime counters.
type Stats struct {
	Shown   uint64 `json:"shown"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
	Queued  int    `json:"queued"`
}

// Worker renders queued messages on a Sink one at a time.
//
// Thread Safety:
//   - Show and Stats are safe for concurrent use.
//   - Run must be called once.
type Worker struct {
	sink   Sink
	queue  chan string
	logger Logger

	shown   atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewWorker creates a worker in front of sink.
func NewWorker(sink Sink, queueSize int, logger Logger) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Worker{
		sink:   sink,
		queue:  make(chan string, queueSize),
		logger: logger,
	}
}

// Show queues text without blocking. It returns ErrQueueFull when the
// queue is full and ctx.Err() when ctx is already done.
func (w *Worker) Show(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case w.queue <- text:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run renders queued messages until ctx is cancelled. Messages still
// queued at cancellation are discarded.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case text := <-w.queue:
			if ctx.Err() != nil {
				w.dropped.Add(1)
				w.drain()
				return
			}
			if err := w.render(ctx, text); err != nil && ctx.Err() == nil {
				w.failed.Add(1)
				if w.logger != nil {
					w.logger.Warn("display failed", "text", text, "error", err)
				}
				continue
			}
			if ctx.Err() == nil {
				w.shown.Add(1)
			}
		}
	}
}

func (w *Worker) render(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if w.logger != nil {
				w.logger.Error("display sink panic", "panic", r)
			}
			err = fmt.Errorf("display sink panic: %v", r)
		}
	}()
	return w.sink.Show(ctx, text)
}

func (w *Worker) drain() {
	for {
		select {
		case <-w.queue:
			w.dropped.Add(1)
		default:
			return
		}
	}
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Shown:   w.shown.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
		Queued:  len(w.queue),
	}
}
