package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Broadcaster fans an event out to the websocket watchers of its listing.
// The local Hub and the Redis relay both implement it.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event) error
}

// Sink forwards events to an external broker.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Dispatcher receives committed events from the engine and delivers them
// from a single worker goroutine, so events leave in the order they were
// accepted.  Notify never blocks; when the queue is full the event is
// dropped and a warning logged.
type Dispatcher struct {
	queue   chan Event
	bc      Broadcaster
	sinks   []Sink
	log     *zap.Logger
	timeout time.Duration
}

// NewDispatcher builds a dispatcher over bc with a queue of queueSize events.
// Nil sinks are ignored.
func NewDispatcher(bc Broadcaster, queueSize int, log *zap.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		queue:   make(chan Event, queueSize),
		bc:      bc,
		log:     log,
		timeout: 5 * time.Second,
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Notify enqueues ev for delivery.
func (d *Dispatcher) Notify(_ context.Context, ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("notification queue full, event dropped",
			zap.String("event", string(ev.Type)),
			zap.Uint64("listing_id", ev.ListingID))
	}
}

// Run delivers queued events until ctx is cancelled.  Events still queued at
// that point are delivered before Run returns.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if d.bc != nil {
		if err := d.bc.Broadcast(ctx, ev); err != nil {
			d.log.Error("broadcast failed",
				zap.String("event", string(ev.Type)),
				zap.Uint64("listing_id", ev.ListingID),
				zap.Error(err))
		}
	}
	for _, s := range d.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			d.log.Warn("event sink publish failed",
				zap.String("event", string(ev.Type)),
				zap.Uint64("listing_id", ev.ListingID),
				zap.Error(err))
		}
	}
}
