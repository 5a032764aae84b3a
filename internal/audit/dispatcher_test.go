package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type gateSink struct {
	gate chan struct{}
	mu   sync.Mutex
	got  []string
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(_ context.Context, ev Event) {
	<-s.gate
	s.mu.Lock()
	s.got = append(s.got, ev.EventType)
	s.mu.Unlock()
}

func (s *gateSink) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

// waitRelayBusy waits until the relay goroutine has taken every queued event.
func waitRelayBusy(t *testing.T, d *Dispatcher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(d.queue) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("relay did not pick up the queued event")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counts")
	}
}

func TestDispatcherDropIfFullDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}

	close(sink.gate)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected at least one dropped event")
	}
	if got := d.Delivered() + d.Dropped(); got != 3 {
		t.Fatalf("delivered+dropped = %d, want 3", got)
	}
}

func TestDispatcherBlockingWaitsForSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink)

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not unblock after space was freed")
	}

	d.Close()
	if got := sink.events(); len(got) != 3 {
		t.Fatalf("expected 3 delivered events, got %v", got)
	}
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: false}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "e3"})

	if d.Dropped() != 1 {
		t.Fatalf("expected cancelled emit counted as dropped, got %d", d.Dropped())
	}
}

func TestDispatcherCloseDrainsAndIsIdempotent(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "after"})

	if d.Delivered() != 5 {
		t.Fatalf("delivered = %d, want 5", d.Delivered())
	}
	if len(sink.Events()) != 5 {
		t.Fatalf("sink holds %d events, want 5", len(sink.Events()))
	}
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "gate_decision", Path: "/dashboard", Success: true})
	sink.Emit(context.Background(), Event{EventType: "session_logout", Success: false, Error: "storage_unavailable"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "session_logout" || ev.Error != "storage_unavailable" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if strings.Contains(lines[0], "request_id") {
		t.Fatal("empty fields should be omitted")
	}
}

func TestSinkFuncAdapts(t *testing.T) {
	var got string
	var s Sink = SinkFunc(func(_ context.Context, ev Event) { got = ev.EventType })
	s.Emit(context.Background(), Event{EventType: "x"})
	if got != "x" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatcherRetainedTypesWaitUnderDropIfFull(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		Retain:     []string{"session_logout"},
	}, sink)

	d.Emit(context.Background(), Event{EventType: "gate_decision"})
	waitRelayBusy(t, d)
	d.Emit(context.Background(), Event{EventType: "gate_decision"})
	d.Emit(context.Background(), Event{EventType: "gate_decision"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "session_logout"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("retained event must wait for space")
	case <-time.After(50 * time.Millisecond):
	}

	close(sink.gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retained emit did not complete")
	}
	d.Close()

	got := sink.events()
	if got[len(got)-1] != "session_logout" {
		t.Fatalf("retained event not delivered: %v", got)
	}
	if drops := d.DroppedByType(); drops["gate_decision"] != 1 || drops["session_logout"] != 0 {
		t.Fatalf("drops = %v", drops)
	}
}

func TestDispatcherDropsCountedPerType(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i, typ := range []string{"a", "b", "a", "b", "a"} {
		d.Emit(context.Background(), Event{EventType: typ})
		if i == 0 {
			waitRelayBusy(t, d)
		}
	}
	close(sink.gate)
	d.Close()

	byType := d.DroppedByType()
	if byType["a"]+byType["b"] != d.Dropped() || d.Dropped()+d.Delivered() != 5 {
		t.Fatalf("drops %v total %d delivered %d", byType, d.Dropped(), d.Delivered())
	}
	if byType["a"] != 2 || byType["b"] != 1 {
		t.Fatalf("unexpected per-type drops %v", byType)
	}
}
