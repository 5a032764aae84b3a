package panelGate

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/panelGate/gate"
	internalaudit "github.com/MrEthical07/panelGate/internal/audit"
	"github.com/MrEthical07/panelGate/session"
)

// Engine evaluates gate decisions and issues session stores. It is immutable
// after Build and safe for concurrent use.
type Engine struct {
	config  Config
	policy  *gate.Policy
	storage session.Storage
	logger  *slog.Logger
	metrics *Metrics
	audit   *internalaudit.Dispatcher
	now     func() time.Time
	closed  atomic.Bool
}

// Close flushes queued audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType returns discarded audit events keyed by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// RedirectStatus returns the HTTP status used for gate redirects.
func (e *Engine) RedirectStatus() int {
	return e.config.Gate.RedirectStatus
}

// Policy returns the compiled decision table.
func (e *Engine) Policy() *gate.Policy {
	return e.policy
}

// Storage returns the durable session storage shared by every store the engine issues.
func (e *Engine) Storage() session.Storage {
	return e.storage
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Decide evaluates a navigation to path with the given cookie values. Empty
// token or role strings mean the cookie was absent.
//
//	Performance: no storage I/O; one regexp match and a fixed rule list.
func (e *Engine) Decide(ctx context.Context, path, token, role string) gate.Decision {
	start := time.Now()
	d := e.policy.Decide(gate.Request{Path: path, Token: token, Role: role})
	e.metrics.Observe(MetricGateDecisionLatency, time.Since(start))

	switch d.Rule {
	case gate.RuleExcluded:
		e.metricInc(MetricGateExcluded)
		return d
	case gate.RuleCitizenLockout:
		e.metricInc(MetricGateCitizenLockout)
	case gate.RuleAnonymousProtected:
		e.metricInc(MetricGateLoginRedirect)
	case gate.RuleAuthenticatedLanding:
		e.metricInc(MetricGateLandingRedirect)
	case gate.RuleAnonymousPublic:
		e.metricInc(MetricGateAnonymousPublic)
	default:
		e.metricInc(MetricGatePassThrough)
	}

	if e.logger.Enabled(ctx, slog.LevelDebug) {
		e.logger.DebugContext(ctx, "gate decision",
			"path", path,
			"role", role,
			"authenticated", token != "",
			"rule", d.Rule.String(),
			"action", d.Action.String(),
			"target", d.Target,
			"request_id", RequestIDFromContext(ctx),
		)
	}

	e.emitAudit(ctx, AuditEventGateDecision, true, func(ev *AuditEvent) {
		ev.Path = path
		ev.Role = role
		ev.Rule = d.Rule.String()
		ev.Target = d.Target
		if d.ClearSession {
			ev.Metadata = map[string]string{"clear_session": "true"}
		}
	})

	return d
}

// NewSessionStore returns a session store keyed by browserID whose Logout
// side effects go to b. An empty browserID uses the bare storage key.
func (e *Engine) NewSessionStore(browserID string, b session.Browser) (*session.Store, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	return session.NewStore(session.Options{
		Storage:     e.storage,
		Key:         e.sessionKey(browserID),
		Browser:     b,
		LoginPath:   e.config.Gate.LoginPath,
		CookieNames: []string{e.config.Gate.TokenCookie, e.config.Gate.RoleCookie},
		Observer:    e.observeSession,
		Logger:      e.logger,
	})
}

// LockedOut reports whether roleCode is barred from holding a web-panel session.
func (e *Engine) LockedOut(roleCode string) bool {
	return e.policy.LockedOut(gate.ParseRole(roleCode))
}

// EndSession deletes the durable record of browserID without touching any
// response. The gate calls it on lockout so no copy outlives the cookies.
func (e *Engine) EndSession(ctx context.Context, browserID string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	err := e.storage.Delete(ctx, e.sessionKey(browserID))
	e.observeSession(ctx, session.Event{Op: session.OpLogout, Err: err})
	return err
}

func (e *Engine) sessionKey(browserID string) string {
	key := e.config.Session.StorageKey
	if browserID != "" {
		key += ":" + browserID
	}
	return key
}
