package gate

// Action is what the caller must do with the request.
type Action uint8

const (
	ActionPassThrough Action = iota
	ActionRedirect
)

func (a Action) String() string {
	if a == ActionRedirect {
		return "redirect"
	}
	return "pass"
}

// Rule identifies which rule governed a decision.
type Rule uint8

const (
	RuleExcluded Rule = iota
	RuleCitizenLockout
	RuleAnonymousProtected
	RuleAnonymousPublic
	RuleAuthenticatedLanding
	RuleDefault
)

func (r Rule) String() string {
	switch r {
	case RuleExcluded:
		return "excluded"
	case RuleCitizenLockout:
		return "citizen_lockout"
	case RuleAnonymousProtected:
		return "anonymous_protected"
	case RuleAnonymousPublic:
		return "anonymous_public"
	case RuleAuthenticatedLanding:
		return "authenticated_landing"
	case RuleDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Request carries the inputs of one evaluation. An empty Token means the
// principal is anonymous regardless of Role.
type Request struct {
	Path  string
	Token string
	Role  string
}

// Authenticated reports whether the request carries a token.
func (r Request) Authenticated() bool {
	return r.Token != ""
}

// Decision is the outcome of evaluating a Request.
type Decision struct {
	Action Action
	// Target is the redirect location; empty on pass-through.
	Target string
	// ClearSession asks the caller to expire both session cookies.
	ClearSession bool
	Rule         Rule
}

// Redirects reports whether d terminates the request with a redirect.
func (d Decision) Redirects() bool {
	return d.Action == ActionRedirect
}

func pass(rule Rule) Decision {
	return Decision{Action: ActionPassThrough, Rule: rule}
}

func redirect(rule Rule, target string, clear bool) Decision {
	return Decision{Action: ActionRedirect, Target: target, ClearSession: clear, Rule: rule}
}
