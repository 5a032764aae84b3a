package gate

import (
	"errors"
	"regexp"
	"strings"
)

// ScopeConfig lists the path patterns that shape gate evaluation.
type ScopeConfig struct {
	// ExcludedPrefixes are raw path prefixes the gate never evaluates.
	ExcludedPrefixes []string
	// ExcludedSuffixes are raw path suffixes the gate never evaluates.
	ExcludedSuffixes []string
	// ProtectedPrefixes are route namespaces that require a token.
	ProtectedPrefixes []string
}

// DefaultScopeConfig mirrors the dashboard's route layout.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		ExcludedPrefixes: []string{"/api", "/_next/static", "/_next/image", "/favicon.ico"},
		ExcludedSuffixes: []string{".png"},
		ProtectedPrefixes: []string{
			"/dashboard",
			"/admin",
			"/requests",
			"/prospects",
			"/calendar",
			"/map",
			"/profile",
		},
	}
}

// Scope is the compiled form of a ScopeConfig. It is safe for concurrent use.
type Scope struct {
	excluded  *regexp.Regexp
	protected []string
}

// CompileScope validates cfg and compiles the exclusion pattern once.
func CompileScope(cfg ScopeConfig) (*Scope, error) {
	alts := make([]string, 0, len(cfg.ExcludedPrefixes)+len(cfg.ExcludedSuffixes))
	for _, p := range cfg.ExcludedPrefixes {
		if !strings.HasPrefix(p, "/") {
			return nil, errors.New("excluded prefix must start with '/'")
		}
		alts = append(alts, "^"+regexp.QuoteMeta(p))
	}
	for _, s := range cfg.ExcludedSuffixes {
		if s == "" {
			return nil, errors.New("excluded suffix must not be empty")
		}
		alts = append(alts, regexp.QuoteMeta(s)+"$")
	}

	protected := make([]string, 0, len(cfg.ProtectedPrefixes))
	for _, p := range cfg.ProtectedPrefixes {
		if !strings.HasPrefix(p, "/") || p == "/" {
			return nil, errors.New("protected prefix must start with '/' and name a namespace")
		}
		protected = append(protected, p)
	}

	sc := &Scope{protected: protected}
	if len(alts) > 0 {
		re, err := regexp.Compile(strings.Join(alts, "|"))
		if err != nil {
			return nil, err
		}
		sc.excluded = re
	}
	return sc, nil
}

// Excluded reports whether path is outside the gate's jurisdiction.
func (s *Scope) Excluded(path string) bool {
	return s != nil && s.excluded != nil && s.excluded.MatchString(path)
}

// Protected reports whether path starts with a protected prefix.
func (s *Scope) Protected(path string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.protected {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
