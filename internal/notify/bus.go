// Package notify is the fan-out side of the dispatcher: once an event has
// been applied to editor state, interested subsystems (renderer, plugin
// host, LSP synchronizer, status line) hear about it here. The bus
// carries notifications, not commands: subscribers read state, they
// never mutate it, so delivery order between subscribers carries no
// correctness weight beyond per-subscriber FIFO.
package notify

import (
	"sync"
	"sync/atomic"
	"time"
)

// Notification is one published occurrence.
type Notification struct {
	Topic   Topic
	Payload any
	Time    time.Time
}

// Handler receives notifications matching a subscription's pattern.
// Handlers run on the publisher's goroutine in synchronous mode, or on
// the bus's delivery goroutine in buffered mode; either way a single
// subscriber sees its notifications in publish order.
type Handler func(n Notification)

// Subscription identifies one registered handler; cancel via
// Bus.Unsubscribe.
type Subscription uint64

type subscriber struct {
	id      Subscription
	pattern Topic
	handler Handler
}

// Bus routes published notifications to pattern-matched subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID atomic.Uint64

	queue chan Notification
	done  chan struct{}

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewBus creates a synchronous bus: Publish runs matching handlers inline
// before returning.
func NewBus() *Bus {
	return &Bus{}
}

// NewBufferedBus creates a bus that delivers from a single background
// goroutine through a bounded queue. Publish never blocks; when the queue
// is full the notification is dropped and counted, which is acceptable
// for the display-refresh class of traffic this bus carries.
func NewBufferedBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 256
	}
	b := &Bus{
		queue: make(chan Notification, queueSize),
		done:  make(chan struct{}),
	}
	go b.deliverLoop()
	return b
}

func (b *Bus) deliverLoop() {
	for {
		select {
		case <-b.done:
			return
		case n := <-b.queue:
			b.deliver(n)
		}
	}
}

// Close stops a buffered bus's delivery goroutine. Synchronous buses need
// no Close.
func (b *Bus) Close() {
	if b.done != nil {
		close(b.done)
	}
}

// Subscribe registers handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler) Subscription {
	id := Subscription(b.nextID.Add(1))
	b.mu.Lock()
	b.subs = append(b.subs, subscriber{id: id, pattern: pattern, handler: handler})
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish sends a notification to every matching subscriber.
func (b *Bus) Publish(topic Topic, payload any) {
	b.published.Add(1)
	n := Notification{Topic: topic, Payload: payload, Time: time.Now()}
	if b.queue == nil {
		b.deliver(n)
		return
	}
	select {
	case b.queue <- n:
	default:
		b.dropped.Add(1)
	}
}

func (b *Bus) deliver(n Notification) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if Match(s.pattern, n.Topic) {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		h(n)
		b.delivered.Add(1)
	}
}

// Stats reports lifetime counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
}

// Stats returns the bus's lifetime counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
