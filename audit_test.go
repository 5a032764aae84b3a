package panelGate

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	n atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) { s.n.Add(1) }

func (s *countingSink) Count() int64 { return s.n.Load() }

func auditConfig() Config {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = true
	return cfg
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()

	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event")
	}
	return AuditEvent{}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	engine, err := New().WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	engine.Decide(context.Background(), "/dashboard", "", "")
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditGateDecisionFields(t *testing.T) {
	sink := NewChannelSink(8)
	engine := newTestEngine(t, New().WithConfig(auditConfig()).WithAuditSink(sink))

	ctx := WithRequestID(WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "test-agent"), "req-1")
	engine.Decide(ctx, "/requests", "secret-token", "CITIZEN")

	ev := nextEvent(t, sink)
	if ev.EventType != AuditEventGateDecision {
		t.Fatalf("event type = %q", ev.EventType)
	}
	if ev.IP != "198.51.100.33" || ev.UserAgent != "test-agent" || ev.RequestID != "req-1" {
		t.Fatalf("unexpected request fields %+v", ev)
	}
	if ev.Path != "/requests" || ev.Role != "CITIZEN" || ev.Rule != "citizen_lockout" {
		t.Fatalf("unexpected decision fields %+v", ev)
	}
	if ev.Target != "/login?error=app_only" || ev.Metadata["clear_session"] != "true" {
		t.Fatalf("unexpected target or metadata %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}
}

func TestAuditExcludedPathsNotEmitted(t *testing.T) {
	sink := &countingSink{}
	engine, err := New().WithConfig(auditConfig()).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	engine.Decide(context.Background(), "/api/users", "", "")
	engine.Decide(context.Background(), "/_next/static/app.js", "t", "CITIZEN")
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("excluded paths emitted %d events", sink.Count())
	}
}

func TestAuditSessionEvents(t *testing.T) {
	sink := NewChannelSink(8)
	engine := newTestEngine(t, New().WithConfig(auditConfig()).WithAuditSink(sink))
	ctx := context.Background()

	store, err := engine.NewSessionStore("b", nil)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	if err := store.SetAuth(ctx, "secret-token", testUser("AGENT")); err != nil {
		t.Fatalf("SetAuth: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	set := nextEvent(t, sink)
	if set.EventType != AuditEventSessionSetAuth || set.Role != "AGENT" || !set.Success {
		t.Fatalf("unexpected set_auth event %+v", set)
	}
	out := nextEvent(t, sink)
	if out.EventType != AuditEventSessionLogout || !out.Success {
		t.Fatalf("unexpected logout event %+v", out)
	}
}

func TestAuditCorruptHydrateReportsErrorCode(t *testing.T) {
	sink := NewChannelSink(8)
	engine := newTestEngine(t, New().WithConfig(auditConfig()).WithAuditSink(sink))
	ctx := context.Background()

	if err := engine.Storage().Save(ctx, "auth-storage:b", []byte{0xff}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store, err := engine.NewSessionStore("b", nil)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	_ = store.Hydrate(ctx)

	ev := nextEvent(t, sink)
	if ev.EventType != AuditEventSessionHydrate || ev.Success || ev.Error != "record_corrupt" {
		t.Fatalf("unexpected hydrate event %+v", ev)
	}
}

func TestAuditNoTokensInEvents(t *testing.T) {
	var buf bytes.Buffer
	engine, err := New().WithConfig(auditConfig()).WithAuditSink(NewJSONWriterSink(&buf)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	engine.Decide(ctx, "/login", "secret-token", "LEADER")
	store, err := engine.NewSessionStore("", nil)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	_ = store.SetAuth(ctx, "secret-token", testUser("LEADER"))
	engine.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		if strings.Contains(line, "secret-token") {
			t.Fatalf("token leaked into audit line %q", line)
		}
	}
}

func TestAuditDroppedWhenBufferFull(t *testing.T) {
	release := make(chan struct{})
	sink := AuditSinkFunc(func(context.Context, AuditEvent) { <-release })

	cfg := auditConfig()
	cfg.Audit.BufferSize = 1
	engine, err := New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer func() {
		close(release)
		engine.Close()
	}()

	for i := 0; i < 10; i++ {
		engine.Decide(context.Background(), "/dashboard", "", "")
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events")
	}
}

func TestAuditSessionEventsRetainedUnderLoad(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var delivered []string
	sink := AuditSinkFunc(func(_ context.Context, ev AuditEvent) {
		<-release
		mu.Lock()
		delivered = append(delivered, ev.EventType)
		mu.Unlock()
	})

	cfg := auditConfig()
	cfg.Audit.BufferSize = 1
	engine, err := New().WithConfig(cfg).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := 0; i < 10; i++ {
		engine.Decide(context.Background(), "/dashboard", "", "")
	}

	store, err := engine.NewSessionStore("b", nil)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	done := make(chan struct{})
	go func() {
		_ = store.SetAuth(context.Background(), "tok", testUser("ADMIN"))
		close(done)
	}()

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetAuth did not complete")
	}
	engine.Close()

	drops := engine.AuditDroppedByType()
	if drops[AuditEventGateDecision] == 0 || drops[AuditEventSessionSetAuth] != 0 {
		t.Fatalf("drops = %v", drops)
	}
	mu.Lock()
	defer mu.Unlock()
	if delivered[len(delivered)-1] != AuditEventSessionSetAuth {
		t.Fatalf("session event not delivered: %v", delivered)
	}
}
