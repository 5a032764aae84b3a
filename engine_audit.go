package panelGate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/panelGate/session"
)

type auditErrorCode string

const (
	auditErrStorageUnavailable auditErrorCode = "storage_unavailable"
	auditErrRecordCorrupt      auditErrorCode = "record_corrupt"
	auditErrInternal           auditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, fill func(*AuditEvent)) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
	}
	if fill != nil {
		fill(&event)
	}

	e.audit.Emit(ctx, event)
}

// observeSession is the session.Options.Observer for every store the engine issues.
func (e *Engine) observeSession(ctx context.Context, ev session.Event) {
	var eventType string
	var count, failure MetricID
	switch ev.Op {
	case session.OpSetAuth:
		count, failure, eventType = MetricSessionSetAuth, MetricSessionPersistFailure, AuditEventSessionSetAuth
	case session.OpLogout:
		count, failure, eventType = MetricSessionLogout, MetricSessionDeleteFailure, AuditEventSessionLogout
	case session.OpHydrate:
		count, failure, eventType = MetricSessionHydrated, MetricSessionLoadFailure, AuditEventSessionHydrate
	default:
		return
	}
	e.metricInc(count)
	if ev.Err != nil {
		e.metricInc(failure)
	}

	e.emitAudit(ctx, eventType, ev.Err == nil, func(a *AuditEvent) {
		a.Role = ev.RoleCode
		if code := sessionErrorCode(ev.Err); code != "" {
			a.Error = string(code)
		}
	})
}

func sessionErrorCode(err error) auditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrRecordCorrupt):
		return auditErrRecordCorrupt
	case errors.Is(err, session.ErrStorageUnavailable):
		return auditErrStorageUnavailable
	default:
		return auditErrInternal
	}
}
