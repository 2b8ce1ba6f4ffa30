/*
Package refresh delivers the fire-and-forget score recomputation.

The state machine emits lead ids after a status change commits; a single
worker consumes them. Failures are logged and counted, never surfaced to the
transition that fired them, and a full queue drops the request rather than
block the caller.
*/
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/internal/metrics"
)

// Func recomputes the score of one lead.
type Func func(ctx context.Context, leadID string) error

// Dispatcher implements ports.ScoreRefresher on top of a buffered channel and
// one worker goroutine.
type Dispatcher struct {
	fn      Func
	queue   chan string
	timeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Set

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics attaches a collector set.
func WithMetrics(set *metrics.Set) Option {
	return func(d *Dispatcher) { d.metrics = set }
}

// WithQueueSize sets the buffer size (default 64).
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) { d.queue = make(chan string, n) }
}

// WithTimeout bounds each refresh call (default 10s).
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

// NewDispatcher creates and starts the worker.
func NewDispatcher(fn Func, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		fn:      fn,
		queue:   make(chan string, 64),
		timeout: 10 * time.Second,
		logger:  logging.NewNop(),
		metrics: metrics.NewSet(nil),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.work()
	return d
}

// Refresh enqueues a lead id without blocking. A full queue drops the request
// with a warning; the caller never waits and never sees an error.
func (d *Dispatcher) Refresh(leadID string) {
	select {
	case d.queue <- leadID:
	default:
		d.metrics.RefreshDropped.Inc()
		d.logger.Warn("score refresh dropped, queue full", "lead_id", leadID)
	}
}

// Close stops accepting work and waits for in-flight refreshes.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for leadID := range d.queue {
		d.runOne(leadID)
	}
}

func (d *Dispatcher) runOne(leadID string) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RefreshFailures.Inc()
			d.logger.Error("score refresh panicked", "lead_id", leadID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.fn(ctx, leadID); err != nil {
		d.metrics.RefreshFailures.Inc()
		d.logger.Error("score refresh failed", "lead_id", leadID, "err", err)
	}
}
