package gate

// RoleSet is a bitmask of roles. The zero value is the empty set.
type RoleSet uint64

// RoleSetOf builds a set holding roles.
func RoleSetOf(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s.Add(r)
	}
	return s
}

// ParseRoleSet builds a set from role codes. It reports the first code that is
// not in the vocabulary.
func ParseRoleSet(codes []string) (RoleSet, string, bool) {
	var s RoleSet
	for _, code := range codes {
		r := ParseRole(code)
		if !r.Known() {
			return 0, code, false
		}
		s.Add(r)
	}
	return s, "", true
}

func (s RoleSet) Has(r Role) bool {
	if r >= roleCount {
		return false
	}
	return s&(1<<r) != 0
}

func (s *RoleSet) Add(r Role) {
	if r >= roleCount {
		return
	}
	*s |= 1 << r
}

func (s *RoleSet) Remove(r Role) {
	if r >= roleCount {
		return
	}
	*s &^= 1 << r
}

func (s RoleSet) Overlaps(other RoleSet) bool {
	return s&other != 0
}

func (s RoleSet) Empty() bool {
	return s == 0
}

// Roles lists the members of s in declaration order.
func (s RoleSet) Roles() []Role {
	var out []Role
	for r := RoleNone; r < roleCount; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Codes lists the wire codes of the known members of s.
func (s RoleSet) Codes() []string {
	var out []string
	for _, r := range s.Roles() {
		if code := r.Code(); code != "" {
			out = append(out, code)
		}
	}
	return out
}
