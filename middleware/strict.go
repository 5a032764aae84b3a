package middleware

import (
	"context"
	"errors"
	"net/http"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/session"
)

type storeContextKey struct{}

// SessionFromContext returns the hydrated store attached by [RequireSession].
func SessionFromContext(ctx context.Context) (*session.Store, bool) {
	s, ok := ctx.Value(storeContextKey{}).(*session.Store)
	return s, ok
}

// RequireSession layers a durable session check over [RequireToken]: the
// browser's hydrated store must hold the same token the request presented.
// A token that was logged out elsewhere is therefore rejected even while its
// signature is still valid.
func RequireSession(engine *panelGate.Engine, parser TokenParser) func(http.Handler) http.Handler {
	requireToken := RequireToken(engine, parser)

	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, err := engine.NewSessionStore(engine.BrowserID(w, r), engine.SessionBrowser(w, r))
			if err != nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}
			if err := store.Hydrate(r.Context()); errors.Is(err, session.ErrStorageUnavailable) {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			token, _ := requestToken(engine, r)
			if store.Token() == "" || store.Token() != token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), storeContextKey{}, store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return requireToken(check)
	}
}
