package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of waiting.
	DropIfFull bool
	// Retain lists event types that wait for buffer space even with
	// DropIfFull. Their wait is bounded by the caller's context.
	Retain []string
}

// Dispatcher relays events to a sink from one background goroutine.
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	retain     map[string]struct{}

	// mu guards closing queue against in-flight sends.
	mu     sync.RWMutex
	closed bool
	queue  chan Event
	idle   chan struct{}

	delivered atomic.Uint64
	dropMu    sync.Mutex
	drops     map[string]uint64
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	retain := make(map[string]struct{}, len(cfg.Retain))
	for _, t := range cfg.Retain {
		retain[t] = struct{}{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		retain:     retain,
		queue:      make(chan Event, cfg.BufferSize),
		idle:       make(chan struct{}),
		drops:      make(map[string]uint64),
	}
	go d.relay()
	return d
}

func (d *Dispatcher) relay() {
	defer close(d.idle)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
		d.delivered.Add(1)
	}
}

// Emit queues event. Droppable events are discarded when the buffer is full;
// the rest wait for space until ctx is done, which also counts as a drop.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if _, keep := d.retain[event.EventType]; d.dropIfFull && !keep {
		select {
		case d.queue <- event:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	}
}

func (d *Dispatcher) drop(eventType string) {
	d.dropMu.Lock()
	d.drops[eventType]++
	d.dropMu.Unlock()
}

// Close stops accepting events and returns once queued ones reached the sink.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

// Dropped returns the total number of discarded events.
func (d *Dispatcher) Dropped() uint64 {
	var n uint64
	for _, c := range d.DroppedByType() {
		n += c
	}
	return n
}

// DroppedByType returns discard counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	for t, n := range d.drops {
		out[t] = n
	}
	d.dropMu.Unlock()
	return out
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
