package audit

import (
	"context"
	"sync"

	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

type Event struct {
	UserID   *uint
	Action   string
	Entity   string
	EntityID *uint
	Metadata any
}

// Recorder accepts audit events without blocking the caller.
type Recorder interface {
	Dispatch(ev Event)
}

type sink interface {
	Log(ctx context.Context, ev Event) error
}

type Dispatcher struct {
	sink   sink
	logger *logging.Logger
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

func NewDispatcher(s sink, logger *logging.Logger, size int) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if size <= 0 {
		size = 100
	}
	d := &Dispatcher{
		sink:   s,
		logger: logger,
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for ev := range d.queue {
		if err := d.sink.Log(context.Background(), ev); err != nil {
			d.logger.Warn("audit write failed", "action", ev.Action, "error", err)
		}
	}
}

// Dispatch drops the event when the queue is full.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("audit queue full, dropping event", "action", ev.Action)
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	<-d.done
}

// Discard is a Recorder that ignores every event.
type Discard struct{}

func (Discard) Dispatch(Event) {}
