package main

import (
	"net/http"
	"os"
	"time"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/internal/logging"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envconfigPrefix = "PANELGATE"

// serverConfig is read from PANELGATE_* environment variables.
type serverConfig struct {
	Address         string        `envconfig:"ADDRESS" default:":8080"`
	Upstream        string        `envconfig:"UPSTREAM" required:"true"`
	AuthAPI         string        `envconfig:"AUTH_API" required:"true"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"panelgate"`

	LoginMaxAttempts int           `envconfig:"LOGIN_MAX_ATTEMPTS" default:"5"`
	LoginCooldown    time.Duration `envconfig:"LOGIN_COOLDOWN" default:"15m"`

	CookieDomain   string        `envconfig:"COOKIE_DOMAIN"`
	CookieInsecure bool          `envconfig:"COOKIE_INSECURE"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	// JWTSecret (HS256) or JWTPublicKey (Ed25519 PEM) enables token
	// verification on GET /api/session.
	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTPublicKey string `envconfig:"JWT_PUBLIC_KEY"`

	AuditFile string `envconfig:"AUDIT_FILE"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

func loadServerConfig() (serverConfig, error) {
	c := serverConfig{}
	if err := envconfig.Process(envconfigPrefix, &c); err != nil {
		return c, errors.Wrap(err, "error getting server configuration from environment")
	}
	return c, nil
}

// engineConfig applies the environment overrides to the stock engine config.
func (c serverConfig) engineConfig() panelGate.Config {
	cfg := panelGate.DefaultConfig()
	cfg.Cookie.Domain = c.CookieDomain
	cfg.Cookie.Secure = !c.CookieInsecure
	if cfg.Cookie.SameSite == http.SameSiteNoneMode && !cfg.Cookie.Secure {
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}
	cfg.Session.TTL = c.SessionTTL
	if c.SessionTTL > 0 {
		cfg.Cookie.MaxAge = c.SessionTTL
	}
	cfg.Audit.Enabled = c.AuditFile != ""
	return cfg
}

func (c serverConfig) loggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.LogLevel)
	cfg.Format = logging.ParseFormat(c.LogFormat)
	cfg.Output = os.Stderr
	return cfg
}
