package notify

import (
	"context"
	"sync"

	"hqbot/internal/models"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Sink consumes committed match events. Sinks are called from a single
// goroutine, in commit order.
type Sink interface {
	Name() string
	Handle(ctx context.Context, events []models.Event) error
}

// Dispatcher fans committed events out to its sinks in the background so the
// request that produced them never waits on chat or broker I/O. Delivery is
// best effort: the events table already holds the durable audit trail.
type Dispatcher struct {
	sinks  []Sink
	queue  chan []models.Event
	logger Logger

	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

func NewDispatcher(logger Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan []models.Event, buffer),
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// AddSink registers a sink. It must be called before Run.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Notify enqueues events without blocking. A full queue drops the batch.
func (d *Dispatcher) Notify(_ context.Context, events []models.Event) {
	if len(events) == 0 {
		return
	}
	batch := append([]models.Event(nil), events...)
	select {
	case d.queue <- batch:
	default:
		d.logger.Warn("notify queue full, dropping %d events of match %s", len(batch), batch[0].MatchID)
	}
}

func (d *Dispatcher) Init() error {
	return nil
}

// Run delivers queued batches until ctx is cancelled or Stop is called, then
// drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.stopped)
	for {
		select {
		case batch := <-d.queue:
			d.deliver(ctx, batch)
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return
		case <-d.done:
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

// Wait blocks until Run has returned.
func (d *Dispatcher) Wait() {
	<-d.stopped
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case batch := <-d.queue:
			d.deliver(ctx, batch)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, batch []models.Event) {
	for _, s := range d.sinks {
		if err := s.Handle(ctx, batch); err != nil {
			d.logger.Error("notify sink %s failed for match %s: %v", s.Name(), batch[0].MatchID, err)
		}
	}
}
