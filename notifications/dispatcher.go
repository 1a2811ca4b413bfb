// Package notifications delivers reservation events to their sinks off the
// request path.
package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-reservations/services"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// Sink is one destination for events. Errors are logged by the dispatcher
// and never reach the code that raised the event.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev services.Event) error
}

// Dispatcher implements services.Notifier with a buffered queue drained by a
// single worker goroutine.
type Dispatcher struct {
	sinks    []Sink
	events   chan services.Event
	StopChan chan struct{}
	done     chan struct{}
	Timeout  time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		sinks:    sinks,
		events:   make(chan services.Event, buffer),
		StopChan: make(chan struct{}),
		done:     make(chan struct{}),
		Timeout:  5 * time.Second,
	}
}

// Notify enqueues ev without blocking. A full queue drops the event.
func (d *Dispatcher) Notify(ev services.Event) {
	select {
	case d.events <- ev:
	default:
		utils.ErrorLogger.WithFields(map[string]interface{}{
			"event_id":       ev.ID,
			"event_type":     ev.Type,
			"reservation_id": ev.ReservationID,
		}).Warn("Notification queue full, dropping event")
	}
}

func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Stop drains what is already queued, then returns.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.StopChan)
	})
	d.Start()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case ev := <-d.events:
			d.deliver(ev)
		case <-d.StopChan:
			for {
				select {
				case ev := <-d.events:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev services.Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
		err := sink.Deliver(ctx, ev)
		cancel()
		if err != nil {
			utils.ErrorLogger.WithError(err).WithFields(map[string]interface{}{
				"sink":     sink.Name(),
				"event_id": ev.ID,
			}).Warn("Notification delivery failed")
		}
	}
}
