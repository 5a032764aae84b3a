package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/authclient"
	"github.com/MrEthical07/panelGate/internal/rate"
	"github.com/MrEthical07/panelGate/middleware"
	"github.com/MrEthical07/panelGate/session"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const maxLoginBody = 64 << 10

type loginClient interface {
	Login(ctx context.Context, email, password string) (*authclient.LoginResult, error)
}

// loginThrottle counts failed logins per email and client IP.
type loginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	Fail(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email, ip string) error
}

type server struct {
	engine   *panelGate.Engine
	auth     loginClient
	throttle loginThrottle
	verifier middleware.TokenParser
	upstream http.Handler
	metrics  http.Handler
	origins  []string
	logger   *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handler wires the session API, the health check and the gated upstream. Only the
// session API is exposed cross-origin, and only to configured origins.
func (s *server) handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.checkHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := func(h http.Handler) http.Handler { return h }
	if len(s.origins) > 0 {
		api = cors.New(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowCredentials: true,
		}).Handler
	}

	var get http.Handler = http.HandlerFunc(s.getSession)
	if s.verifier != nil {
		get = middleware.RequireSession(s.engine, s.verifier)(get)
	}
	router.Handle("/api/session", api(get)).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/api/session/login", api(http.HandlerFunc(s.login))).
		Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/api/session/logout", api(http.HandlerFunc(s.logout))).
		Methods(http.MethodPost, http.MethodOptions)

	router.PathPrefix("/").Handler(middleware.Gate(s.engine)(s.upstream))

	return router
}

func (s *server) checkHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct{}{})
}

// browserStore returns the hydrated store for the calling browser. A corrupt
// durable record yields an empty store.
func (s *server) browserStore(w http.ResponseWriter, r *http.Request) (*session.Store, error) {
	store, err := s.engine.NewSessionStore(s.engine.BrowserID(w, r), s.engine.SessionBrowser(w, r))
	if err != nil {
		return nil, err
	}
	if err := store.Hydrate(r.Context()); err != nil && errors.Is(err, session.ErrStorageUnavailable) {
		return nil, err
	}
	return store, nil
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		var err error
		if store, err = s.browserStore(w, r); err != nil {
			s.logger.ErrorContext(r.Context(), "session load failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session_unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil ||
		req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}

	ip := remoteIP(r)
	if s.throttle != nil {
		err := s.throttle.Check(ctx, req.Email, ip)
		if errors.Is(err, rate.ErrRateLimited) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too_many_attempts"})
			return
		}
		if err != nil {
			s.logger.WarnContext(ctx, "login throttle unavailable", "error", err)
		}
	}

	res, err := s.auth.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, authclient.ErrInvalidCredentials):
		s.recordLoginFailure(ctx, req.Email, ip)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_credentials"})
		return
	case err != nil:
		s.logger.ErrorContext(ctx, "login exchange failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "auth_unavailable"})
		return
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, req.Email, ip); err != nil {
			s.logger.WarnContext(ctx, "login throttle reset failed", "error", err)
		}
	}

	if res.User == nil || s.engine.LockedOut(res.User.Role.Code) {
		s.logger.InfoContext(ctx, "login refused for lockout role", "ip", ip)
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "app_only"})
		return
	}

	store, err := s.browserStore(w, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "session load failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session_unavailable"})
		return
	}

	if err := s.engine.SetSessionCookies(w, res.Token, res.User.Role.Code); err != nil {
		s.logger.WarnContext(ctx, "login token rejected", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "invalid_token"})
		return
	}

	// the cookies already carry the session; a persist failure only costs
	// rehydration on the next request
	if err := store.SetAuth(ctx, res.Token, res.User); err != nil {
		s.logger.WarnContext(ctx, "session persist failed", "error", err)
	}

	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	store, err := s.engine.NewSessionStore(s.engine.BrowserID(w, r), s.engine.SessionBrowser(w, r))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session_unavailable"})
		return
	}
	if err := store.Logout(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "session delete failed", "error", err)
	}
}

func (s *server) recordLoginFailure(ctx context.Context, email, ip string) {
	if s.throttle == nil {
		return
	}
	err := s.throttle.Fail(ctx, email, ip)
	switch {
	case errors.Is(err, rate.ErrRateLimited):
		s.logger.WarnContext(ctx, "login attempts exhausted", "ip", ip)
	case err != nil:
		s.logger.WarnContext(ctx, "login throttle unavailable", "error", err)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
