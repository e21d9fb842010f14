package dispatch

import (
	"log"
	"sync"
)

// Event is one inbound transport event. EventID is assigned by the platform
// and, together with ChatID, identifies the event for deduplication under
// at-least-once delivery.
type Event struct {
	ChatID   int64
	EventID  int
	Username string
	Text     string
	Action   string // callback action id; empty for plain text messages
}

// Handler processes exactly one event. A panic inside the handler is caught
// at the event boundary and never kills the worker.
type Handler func(ev Event)

type eventKey struct {
	chatID  int64
	eventID int
}

// Dispatcher fans inbound events out to sharded workers. Events for one
// conversation always land on the same shard, which gives per-conversation
// FIFO ordering and single-writer-per-key without any locking in handlers.
type Dispatcher struct {
	handler Handler
	apology Handler // optional, invoked after a handler panic
	shards  []chan Event
	wg      sync.WaitGroup

	mu         sync.Mutex
	processing map[eventKey]struct{}
	seen       *seenCache
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithApology sets a callback run after a handler panic, typically to send
// the user a generic apology.
func WithApology(fn Handler) Option {
	return func(d *Dispatcher) { d.apology = fn }
}

// New starts workers shards with queueSize buffered events each.
// seenCapacity bounds the idempotency cache of recently completed events.
func New(workers, queueSize, seenCapacity int, handler Handler, opts ...Option) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		handler:    handler,
		shards:     make([]chan Event, workers),
		processing: make(map[eventKey]struct{}),
		seen:       newSeenCache(seenCapacity),
	}
	for _, opt := range opts {
		opt(d)
	}
	for i := range d.shards {
		d.shards[i] = make(chan Event, queueSize)
		d.wg.Add(1)
		go d.worker(d.shards[i])
	}
	return d
}

// Enqueue submits an event for processing. Duplicates of an event that is in
// flight or recently completed are dropped silently; the return value
// reports whether the event was accepted.
func (d *Dispatcher) Enqueue(ev Event) bool {
	k := eventKey{chatID: ev.ChatID, eventID: ev.EventID}

	d.mu.Lock()
	if _, inflight := d.processing[k]; inflight || d.seen.has(k) {
		d.mu.Unlock()
		return false
	}
	d.processing[k] = struct{}{}
	d.mu.Unlock()

	d.shardFor(ev.ChatID) <- ev
	return true
}

func (d *Dispatcher) shardFor(chatID int64) chan Event {
	idx := chatID % int64(len(d.shards))
	if idx < 0 {
		idx = -idx
	}
	return d.shards[idx]
}

func (d *Dispatcher) worker(events chan Event) {
	defer d.wg.Done()
	for ev := range events {
		d.process(ev)
	}
}

func (d *Dispatcher) process(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("handler panic on event %d/%d: %v", ev.ChatID, ev.EventID, r)
			if d.apology != nil {
				d.apology(ev)
			}
		}
		d.finish(ev)
	}()
	d.handler(ev)
}

// finish atomically moves the event from in-flight to recently-seen, so a
// retry arriving at any moment is matched by exactly one of the two sets.
func (d *Dispatcher) finish(ev Event) {
	k := eventKey{chatID: ev.ChatID, eventID: ev.EventID}
	d.mu.Lock()
	delete(d.processing, k)
	d.seen.add(k)
	d.mu.Unlock()
}

// Stop drains the queues and waits for the workers to exit.
func (d *Dispatcher) Stop() {
	for _, sh := range d.shards {
		close(sh)
	}
	d.wg.Wait()
}

// seenCache is a bounded idempotency cache with FIFO eviction: once full,
// the oldest completed event id is evicted for each new one, instead of
// clearing the whole set. Sized to the transport's maximum retry window.
type seenCache struct {
	capacity int
	keys     map[eventKey]struct{}
	ring     []eventKey
	next     int
}

func newSeenCache(capacity int) *seenCache {
	if capacity < 1 {
		capacity = 1
	}
	return &seenCache{
		capacity: capacity,
		keys:     make(map[eventKey]struct{}, capacity),
	}
}

func (c *seenCache) has(k eventKey) bool {
	_, ok := c.keys[k]
	return ok
}

func (c *seenCache) add(k eventKey) {
	if c.has(k) {
		return
	}
	if len(c.ring) < c.capacity {
		c.ring = append(c.ring, k)
	} else {
		delete(c.keys, c.ring[c.next])
		c.ring[c.next] = k
		c.next = (c.next + 1) % c.capacity
	}
	c.keys[k] = struct{}{}
}
