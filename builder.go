package panelGate

import (
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/panelGate/gate"
	internalaudit "github.com/MrEthical07/panelGate/internal/audit"
	"github.com/MrEthical07/panelGate/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization, then call
// Build once.
type Builder struct {
	config    Config
	storage   session.Storage
	redis     redis.UniversalClient
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the durable session storage. It takes precedence over WithRedis.
func (b *Builder) WithStorage(s session.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis stores durable sessions in Redis under Config.Session.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, compiles the gate policy and starts the
// audit dispatcher. Without storage or Redis, sessions live in process memory.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pc, err := cfg.PolicyConfig()
	if err != nil {
		return nil, err
	}
	policy, err := gate.NewPolicy(pc)
	if err != nil {
		return nil, err
	}

	storage := b.storage
	switch {
	case storage != nil:
	case b.redis != nil:
		storage = session.NewRedisStorage(b.redis, cfg.Session.RedisPrefix, cfg.Session.TTL)
	default:
		storage = session.NewMemoryStorage()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	engine := &Engine{
		config:  cfg,
		policy:  policy,
		storage: storage,
		logger:  logger.With("component", "panelgate"),
		metrics: NewMetrics(cfg.Metrics),
		now:     time.Now,
		audit:   internalaudit.NewDispatcher(auditDispatcherConfig(cfg.Audit), b.auditSink),
	}

	b.built = true

	return engine, nil
}

func auditDispatcherConfig(c AuditConfig) internalaudit.Config {
	out := internalaudit.Config{
		Enabled:    c.Enabled,
		BufferSize: c.BufferSize,
		DropIfFull: c.DropIfFull,
	}
	if c.RetainSessionEvents {
		out.Retain = []string{AuditEventSessionSetAuth, AuditEventSessionLogout, AuditEventSessionHydrate}
	}
	return out
}
