package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/gate"
	"github.com/google/uuid"
)

// RequestIDHeader is read for an incoming correlation ID and echoed on the response.
const RequestIDHeader = "X-Request-ID"

type decisionContextKey struct{}

// DecisionFromContext returns the gate decision for a request that passed [Gate].
func DecisionFromContext(ctx context.Context) (gate.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(gate.Decision)
	return d, ok
}

// Gate runs every request through engine.Decide using the gate cookies.
// Redirect decisions are written with Gate.RedirectStatus; lockouts also
// expire the gate cookies and delete the browser's durable session. Pass-through requests reach next with the decision
// in their context.
func Gate(engine *panelGate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "gate unavailable", http.StatusServiceUnavailable)
				return
			}

			ctx := withRequestMeta(w, r)
			token, role := engine.ReadSessionCookies(r)

			d := engine.Decide(ctx, r.URL.Path, token, role)
			if d.Redirects() {
				if d.ClearSession {
					engine.ClearSessionCookies(w)
					if id, ok := engine.ReadBrowserID(r); ok {
						if err := engine.EndSession(ctx, id); err != nil {
							engine.Logger().WarnContext(ctx, "lockout session delete failed", "error", err)
						}
					}
				}
				http.Redirect(w, r, d.Target, engine.RedirectStatus())
				return
			}

			ctx = context.WithValue(ctx, decisionContextKey{}, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withRequestMeta(w http.ResponseWriter, r *http.Request) context.Context {
	id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	ctx := panelGate.WithRequestID(r.Context(), id)
	ctx = panelGate.WithClientIP(ctx, clientIP(r))
	return panelGate.WithUserAgent(ctx, r.UserAgent())
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
