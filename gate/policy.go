package gate

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidTarget is returned when a redirect target is not an absolute path.
	ErrInvalidTarget = errors.New("redirect target must start with '/'")
	// ErrOverlappingRoles is returned when a role appears in more than one rule set.
	ErrOverlappingRoles = errors.New("role allow-sets overlap")
	// ErrEmptyRoleSet is returned when a landing or lockout entry lists no roles.
	ErrEmptyRoleSet = errors.New("role allow-set is empty")
)

// Landing routes an allow-set of roles to a landing path.
type Landing struct {
	Roles  RoleSet
	Target string
}

// PolicyConfig is the decision table in data form.
type PolicyConfig struct {
	Scope ScopeConfig

	RootPath  string
	LoginPath string
	// PublicPaths are exact paths that send an authenticated principal to its landing.
	PublicPaths []string

	LockoutRoles  RoleSet
	LockoutTarget string

	// Landings are checked in order; the first set holding the role wins.
	Landings       []Landing
	DefaultLanding string
}

// DefaultPolicyConfig returns the dashboard's stock decision table.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Scope:         DefaultScopeConfig(),
		RootPath:      "/",
		LoginPath:     "/login",
		PublicPaths:   []string{"/login", "/"},
		LockoutRoles:  RoleSetOf(RoleCitizen),
		LockoutTarget: "/login?error=app_only",
		Landings: []Landing{
			{Roles: RoleSetOf(RoleSecretary, RoleLegislative), Target: "/requests"},
			{Roles: RoleSetOf(RoleLeader, RoleAgent), Target: "/prospects"},
		},
		DefaultLanding: "/dashboard",
	}
}

// Policy evaluates gate requests. A Policy is immutable after construction and
// safe for concurrent use.
type Policy struct {
	scope          *Scope
	rootPath       string
	loginPath      string
	publicPaths    map[string]struct{}
	lockoutRoles   RoleSet
	lockoutTarget  string
	landings       []Landing
	defaultLanding string
}

// NewPolicy validates cfg and compiles it.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	for _, target := range []string{cfg.RootPath, cfg.LoginPath, cfg.LockoutTarget, cfg.DefaultLanding} {
		if !strings.HasPrefix(target, "/") {
			return nil, ErrInvalidTarget
		}
	}
	if cfg.LockoutRoles.Empty() {
		return nil, ErrEmptyRoleSet
	}

	var seen RoleSet
	landings := make([]Landing, 0, len(cfg.Landings))
	for _, l := range cfg.Landings {
		if l.Roles.Empty() {
			return nil, ErrEmptyRoleSet
		}
		if !strings.HasPrefix(l.Target, "/") {
			return nil, ErrInvalidTarget
		}
		if l.Roles.Overlaps(seen) || l.Roles.Overlaps(cfg.LockoutRoles) {
			return nil, ErrOverlappingRoles
		}
		seen |= l.Roles
		landings = append(landings, l)
	}

	scope, err := CompileScope(cfg.Scope)
	if err != nil {
		return nil, err
	}

	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return nil, ErrInvalidTarget
		}
		public[p] = struct{}{}
	}

	return &Policy{
		scope:          scope,
		rootPath:       cfg.RootPath,
		loginPath:      cfg.LoginPath,
		publicPaths:    public,
		lockoutRoles:   cfg.LockoutRoles,
		lockoutTarget:  cfg.LockoutTarget,
		landings:       landings,
		defaultLanding: cfg.DefaultLanding,
	}, nil
}

// DefaultPolicy returns the compiled stock policy.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(DefaultPolicyConfig())
	if err != nil {
		panic("gate: default policy invalid: " + err.Error())
	}
	return p
}

// LoginPath returns the path anonymous principals are sent to.
func (p *Policy) LoginPath() string {
	return p.loginPath
}

// LockedOut reports whether role may never hold a web-panel session.
func (p *Policy) LockedOut(role Role) bool {
	return p.lockoutRoles.Has(role)
}

// LockoutTarget returns where locked-out principals are sent.
func (p *Policy) LockoutTarget() string {
	return p.lockoutTarget
}

// Excluded reports whether path bypasses the gate entirely.
func (p *Policy) Excluded(path string) bool {
	return p.scope.Excluded(path)
}

// Decide evaluates req. The first matching rule governs.
func (p *Policy) Decide(req Request) Decision {
	if p.scope.Excluded(req.Path) {
		return pass(RuleExcluded)
	}

	role := ParseRole(req.Role)

	if req.Authenticated() && p.LockedOut(role) {
		return redirect(RuleCitizenLockout, p.lockoutTarget, true)
	}

	if !req.Authenticated() {
		if req.Path == p.rootPath || p.scope.Protected(req.Path) {
			return redirect(RuleAnonymousProtected, p.loginPath, false)
		}
		return pass(RuleAnonymousPublic)
	}

	if _, ok := p.publicPaths[req.Path]; ok {
		return redirect(RuleAuthenticatedLanding, p.Landing(role), false)
	}

	return pass(RuleDefault)
}

// Landing returns the landing path for role. Roles outside every landing set,
// including RoleNone and RoleUnknown, get the default landing.
func (p *Policy) Landing(role Role) string {
	for _, l := range p.landings {
		if l.Roles.Has(role) {
			return l.Target
		}
	}
	return p.defaultLanding
}
