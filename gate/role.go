package gate

// Role is a principal's permission class as carried by the role cookie.
type Role uint8

const (
	// RoleNone means no role marker was presented.
	RoleNone Role = iota
	// RoleUnknown is a non-empty role code outside the vocabulary.
	RoleUnknown
	RoleSuperAdmin
	RoleAdmin
	RoleSecretary
	RoleLegislative
	RoleLeader
	RoleAgent
	RoleLawyer
	RoleCitizen
	roleCount
)

var roleCodes = [roleCount]string{
	RoleNone:        "",
	RoleUnknown:     "",
	RoleSuperAdmin:  "SUPER_ADMIN",
	RoleAdmin:       "ADMIN",
	RoleSecretary:   "SECRETARY",
	RoleLegislative: "LEGISLATIVE",
	RoleLeader:      "LEADER",
	RoleAgent:       "AGENT",
	RoleLawyer:      "LAWYER",
	RoleCitizen:     "CITIZEN",
}

var rolesByCode = func() map[string]Role {
	m := make(map[string]Role, roleCount)
	for r := RoleSuperAdmin; r < roleCount; r++ {
		m[roleCodes[r]] = r
	}
	return m
}()

// ParseRole maps a role code to its Role. Matching is exact and case-sensitive:
// "admin" is RoleUnknown, not RoleAdmin. An empty code is RoleNone.
func ParseRole(code string) Role {
	if code == "" {
		return RoleNone
	}
	if r, ok := rolesByCode[code]; ok {
		return r
	}
	return RoleUnknown
}

// Code returns the wire code for r, or "" for RoleNone and RoleUnknown.
func (r Role) Code() string {
	if r >= roleCount {
		return ""
	}
	return roleCodes[r]
}

// Known reports whether r is one of the closed vocabulary roles.
func (r Role) Known() bool {
	return r >= RoleSuperAdmin && r < roleCount
}

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleUnknown:
		return "unknown"
	}
	if code := r.Code(); code != "" {
		return code
	}
	return "invalid"
}

// AllRoles returns every vocabulary role in declaration order.
func AllRoles() []Role {
	out := make([]Role, 0, roleCount-RoleSuperAdmin)
	for r := RoleSuperAdmin; r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}
