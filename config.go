package panelGate

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/panelGate/gate"
)

// Config is the full engine configuration. Obtain one from [DefaultConfig]
// and adjust fields before passing it to [Builder.WithConfig].
type Config struct {
	Gate    GateConfig
	Cookie  CookieConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
GATE CONFIG
====================================
*/

// LandingConfig routes a set of role codes to a landing path.
type LandingConfig struct {
	Roles  []string
	Target string
}

// GateConfig holds the route decision table and the cookie names it reads.
type GateConfig struct {
	TokenCookie string
	RoleCookie  string

	RootPath    string
	LoginPath   string
	PublicPaths []string

	LockoutRoles  []string
	LockoutTarget string

	Landings       []LandingConfig
	DefaultLanding string

	ProtectedPrefixes []string
	ExcludedPrefixes  []string
	ExcludedSuffixes  []string

	// RedirectStatus is the status written for gate redirects (301, 302, 303, 307 or 308).
	RedirectStatus int
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls how the gate cookies are written and cleared.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	MaxAge   time.Duration
	// UseTokenExpiry caps cookie lifetime at the token's exp claim when the
	// token is a JWT.
	UseTokenExpiry bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls durable session storage.
type SessionConfig struct {
	StorageKey string
	// BrowserCookie holds the per-browser ID that keys durable records.
	BrowserCookie   string
	RedisPrefix     string
	MongoCollection string
	// TTL bounds durable records in stores that support expiry. Zero keeps
	// records until logout.
	TTL time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// RetainSessionEvents exempts session lifecycle events from DropIfFull;
	// only gate decisions are shed under load.
	RetainSessionEvents bool
}

// MetricsConfig controls in-process counters and the decision latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the dashboard's stock configuration.
func DefaultConfig() Config {
	return Config{
		Gate: GateConfig{
			TokenCookie:    "auth-token",
			RoleCookie:     "user-role",
			RootPath:       "/",
			LoginPath:      "/login",
			PublicPaths:    []string{"/login", "/"},
			LockoutRoles:   []string{gate.RoleCitizen.Code()},
			LockoutTarget:  "/login?error=app_only",
			DefaultLanding: "/dashboard",
			Landings: []LandingConfig{
				{Roles: []string{gate.RoleSecretary.Code(), gate.RoleLegislative.Code()}, Target: "/requests"},
				{Roles: []string{gate.RoleLeader.Code(), gate.RoleAgent.Code()}, Target: "/prospects"},
			},
			ProtectedPrefixes: []string{"/dashboard", "/admin", "/requests", "/prospects", "/calendar", "/map", "/profile"},
			ExcludedPrefixes:  []string{"/api", "/_next/static", "/_next/image", "/favicon.ico"},
			ExcludedSuffixes:  []string{".png"},
			RedirectStatus:    http.StatusTemporaryRedirect,
		},
		Cookie: CookieConfig{
			Path:           "/",
			Secure:         true,
			HTTPOnly:       false,
			SameSite:       http.SameSiteLaxMode,
			MaxAge:         7 * 24 * time.Hour,
			UseTokenExpiry: true,
		},
		Session: SessionConfig{
			StorageKey:      "auth-storage",
			BrowserCookie:   "pg-browser",
			RedisPrefix:     "pg",
			MongoCollection: "sessions",
			TTL:             7 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:             false,
			BufferSize:          1024,
			DropIfFull:          true,
			RetainSessionEvents: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Gate.PublicPaths = cloneStrings(cfg.Gate.PublicPaths)
	out.Gate.LockoutRoles = cloneStrings(cfg.Gate.LockoutRoles)
	out.Gate.ProtectedPrefixes = cloneStrings(cfg.Gate.ProtectedPrefixes)
	out.Gate.ExcludedPrefixes = cloneStrings(cfg.Gate.ExcludedPrefixes)
	out.Gate.ExcludedSuffixes = cloneStrings(cfg.Gate.ExcludedSuffixes)
	if cfg.Gate.Landings != nil {
		out.Gate.Landings = make([]LandingConfig, len(cfg.Gate.Landings))
		for i, l := range cfg.Gate.Landings {
			out.Gate.Landings[i] = LandingConfig{Roles: cloneStrings(l.Roles), Target: l.Target}
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// PolicyConfig converts the gate section into a [gate.PolicyConfig].
func (c *Config) PolicyConfig() (gate.PolicyConfig, error) {
	lockout, bad, ok := gate.ParseRoleSet(c.Gate.LockoutRoles)
	if !ok {
		return gate.PolicyConfig{}, fmt.Errorf("%w: unknown lockout role %q", ErrInvalidConfig, bad)
	}

	landings := make([]gate.Landing, 0, len(c.Gate.Landings))
	for _, l := range c.Gate.Landings {
		roles, bad, ok := gate.ParseRoleSet(l.Roles)
		if !ok {
			return gate.PolicyConfig{}, fmt.Errorf("%w: unknown landing role %q", ErrInvalidConfig, bad)
		}
		landings = append(landings, gate.Landing{Roles: roles, Target: l.Target})
	}

	return gate.PolicyConfig{
		Scope: gate.ScopeConfig{
			ExcludedPrefixes:  cloneStrings(c.Gate.ExcludedPrefixes),
			ExcludedSuffixes:  cloneStrings(c.Gate.ExcludedSuffixes),
			ProtectedPrefixes: cloneStrings(c.Gate.ProtectedPrefixes),
		},
		RootPath:       c.Gate.RootPath,
		LoginPath:      c.Gate.LoginPath,
		PublicPaths:    cloneStrings(c.Gate.PublicPaths),
		LockoutRoles:   lockout,
		LockoutTarget:  c.Gate.LockoutTarget,
		Landings:       landings,
		DefaultLanding: c.Gate.DefaultLanding,
	}, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found. All returned
// errors wrap [ErrInvalidConfig].
func (c *Config) Validate() error {
	// Gate
	if c.Gate.TokenCookie == "" || c.Gate.RoleCookie == "" {
		return invalid("Gate cookie names must be set")
	}
	if c.Gate.TokenCookie == c.Gate.RoleCookie {
		return invalid("Gate TokenCookie and RoleCookie must differ")
	}
	switch c.Gate.RedirectStatus {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return invalid("Gate RedirectStatus must be a redirect status")
	}

	pc, err := c.PolicyConfig()
	if err != nil {
		return err
	}
	if _, err := gate.NewPolicy(pc); err != nil {
		return fmt.Errorf("%w: gate policy: %w", ErrInvalidConfig, err)
	}

	// Cookie
	if !strings.HasPrefix(c.Cookie.Path, "/") {
		return invalid("Cookie Path must start with '/'")
	}
	if c.Cookie.MaxAge <= 0 {
		return invalid("Cookie MaxAge must be > 0")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return invalid("Cookie SameSite=None requires Secure")
	}

	// Session
	if c.Session.StorageKey == "" {
		return invalid("Session StorageKey must be set")
	}
	if c.Session.BrowserCookie == "" {
		return invalid("Session BrowserCookie must be set")
	}
	if c.Session.BrowserCookie == c.Gate.TokenCookie || c.Session.BrowserCookie == c.Gate.RoleCookie {
		return invalid("Session BrowserCookie must differ from the gate cookies")
	}
	if c.Session.TTL < 0 {
		return invalid("Session TTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the ordered list of findings from [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that are valid but likely unintended in production.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code, msg string) {
		out = append(out, LintWarning{Code: code, Message: msg})
	}

	if !c.Cookie.Secure {
		add("cookie_insecure", "gate cookies are sent over plain HTTP")
	}
	if c.Session.TTL == 0 {
		add("session_ttl_unbounded", "durable session records never expire")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "a slow audit sink delays gate decisions")
	}
	if c.Cookie.MaxAge > 30*24*time.Hour {
		add("cookie_max_age_long", "gate cookies outlive 30 days")
	}
	if c.Gate.RedirectStatus == http.StatusMovedPermanently || c.Gate.RedirectStatus == http.StatusPermanentRedirect {
		add("redirect_permanent", "browsers cache permanent gate redirects across logins")
	}
	if len(c.Gate.ExcludedPrefixes) == 0 {
		add("no_exclusions", "asset and API paths run through the gate")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		add("cookie_samesite_none", "cross-site requests carry the gate cookies")
	}
	if c.Session.TTL > 0 && c.Session.TTL < c.Cookie.MaxAge {
		add("session_ttl_short", fmt.Sprintf("durable records expire after %s but cookies live %s", c.Session.TTL, c.Cookie.MaxAge))
	}

	scope, err := gate.CompileScope(gate.ScopeConfig{
		ExcludedPrefixes:  c.Gate.ExcludedPrefixes,
		ExcludedSuffixes:  c.Gate.ExcludedSuffixes,
		ProtectedPrefixes: c.Gate.ProtectedPrefixes,
	})
	if err != nil {
		return out
	}
	for _, target := range c.landingTargets() {
		switch {
		case scope.Excluded(target):
			add("landing_excluded", fmt.Sprintf("landing %s bypasses the gate", target))
		case !scope.Protected(target):
			add("landing_unprotected", fmt.Sprintf("landing %s is reachable without a token", target))
		}
	}
	return out
}

// landingTargets returns the distinct landing paths in table order, default last.
func (c *Config) landingTargets() []string {
	seen := make(map[string]struct{}, len(c.Gate.Landings)+1)
	var out []string
	for _, t := range append(landingPaths(c.Gate.Landings), c.Gate.DefaultLanding) {
		if i := strings.IndexByte(t, '?'); i >= 0 {
			t = t[:i]
		}
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func landingPaths(ls []LandingConfig) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Target
	}
	return out
}
