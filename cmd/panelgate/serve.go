package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/authclient"
	"github.com/MrEthical07/panelGate/internal/logging"
	"github.com/MrEthical07/panelGate/internal/rate"
	"github.com/MrEthical07/panelGate/jwt"
	"github.com/MrEthical07/panelGate/metrics/export/prometheus"
	"github.com/MrEthical07/panelGate/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gate in front of the dashboard",
		Long: `Run the edge server. Configuration comes from PANELGATE_* environment
variables; PANELGATE_UPSTREAM and PANELGATE_AUTH_API are required.

Session records go to Redis when PANELGATE_REDIS_ADDR is set, otherwise to
MongoDB when PANELGATE_MONGO_URI is set, otherwise they stay in memory.
Failed logins are throttled only when Redis is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadServerConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), c)
		},
	}
}

func runServe(ctx context.Context, c serverConfig) error {
	logger := logging.New(c.loggingConfig())

	upstream, err := url.Parse(c.Upstream)
	if err != nil || upstream.Host == "" {
		return errors.Errorf("invalid upstream %q", c.Upstream)
	}

	cfg := c.engineConfig()
	for _, w := range cfg.Lint() {
		logger.Warn("config lint", "code", w.Code, "message", w.Message)
	}

	builder := panelGate.New().WithConfig(cfg).WithLogger(logger)

	if c.AuditFile != "" {
		f, err := os.OpenFile(c.AuditFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrap(err, "error opening audit file")
		}
		defer f.Close()
		builder.WithAuditSink(panelGate.NewJSONWriterSink(f))
	}

	release, rdb, err := attachStorage(ctx, c, cfg, builder, logger)
	if err != nil {
		return err
	}
	defer release()

	engine, err := builder.Build()
	if err != nil {
		return errors.Wrap(err, "error building gate engine")
	}
	defer engine.Close()

	verifier, err := c.tokenVerifier()
	if err != nil {
		return err
	}

	srv := &server{
		engine:   engine,
		auth:     authclient.New(c.AuthAPI),
		upstream: httputil.NewSingleHostReverseProxy(upstream),
		metrics:  prometheus.NewPrometheusExporter(engine).Handler(),
		origins:  c.AllowedOrigins,
		logger:   logger,
	}
	if verifier != nil {
		srv.verifier = verifier
	}
	if rdb != nil {
		srv.throttle = rate.New(rdb, rate.Config{
			MaxAttempts: c.LoginMaxAttempts,
			Cooldown:    c.LoginCooldown,
			PerIP:       true,
		})
	}

	httpServer := &http.Server{
		Addr:              c.Address,
		Handler:           h2c.NewHandler(srv.handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", c.Address, "upstream", upstream.String())
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "server error")
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown error")
		}
		return nil
	}
}

// tokenVerifier returns nil when no verification key is configured.
func (c serverConfig) tokenVerifier() (*jwt.Manager, error) {
	var jc jwt.Config
	switch {
	case c.JWTSecret != "":
		jc = jwt.Config{SigningMethod: jwt.MethodHS256, PrivateKey: []byte(c.JWTSecret)}
	case c.JWTPublicKey != "":
		jc = jwt.Config{SigningMethod: jwt.MethodEd25519, PublicKey: []byte(c.JWTPublicKey)}
	default:
		return nil, nil
	}
	jc.TTL = c.SessionTTL
	if jc.TTL <= 0 {
		jc.TTL = 24 * time.Hour
	}

	m, err := jwt.NewManager(jc)
	if err != nil {
		return nil, errors.Wrap(err, "error configuring token verification")
	}
	return m, nil
}

var _ middleware.TokenParser = (*jwt.Manager)(nil)
