package services

import (
	"sync"

	"payment-widget/internal/models"
)

// eventOutbox is an unbounded FIFO of status events waiting to be published.
// push never blocks, so it is safe to call from the widget's status hook.
type eventOutbox struct {
	mu     sync.Mutex
	queue  []models.WidgetEvent
	closed bool
	wake   chan struct{}
}

func newEventOutbox() *eventOutbox {
	return &eventOutbox{wake: make(chan struct{}, 1)}
}

// push queues ev. It returns false once the outbox is closed.
func (o *eventOutbox) push(ev models.WidgetEvent) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, ev)
	o.mu.Unlock()
	o.signal()
	return true
}

// close stops accepting events. Queued events are still handed out by next.
func (o *eventOutbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

// next blocks until events are queued and returns all of them. It returns
// false when the outbox is closed and drained.
func (o *eventOutbox) next() ([]models.WidgetEvent, bool) {
	for {
		o.mu.Lock()
		if len(o.queue) > 0 {
			batch := o.queue
			o.queue = nil
			o.mu.Unlock()
			return batch, true
		}
		if o.closed {
			o.mu.Unlock()
			return nil, false
		}
		o.mu.Unlock()
		<-o.wake
	}
}

func (o *eventOutbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}
