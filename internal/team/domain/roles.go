package domain

// Team roles. Lower rank is more privileged.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Member types tag what a membership represents inside a club.
const (
	MemberTypeCoach   = "COACH"
	MemberTypeAthlete = "ATHLETE"
	MemberTypeParent  = "PARENT"
)

// roleRanks is the only place the hierarchy is defined; every consumer
// compares through Rank so the ordering cannot drift between packages.
var roleRanks = map[string]int{
	RoleOwner:  1,
	RoleAdmin:  2,
	RoleMember: 3,
}

// Rank returns the numeric rank for a role, or 0 for unknown roles.
func Rank(role string) int {
	return roleRanks[role]
}

// ValidRole reports whether role is one of the known team roles.
func ValidRole(role string) bool {
	_, ok := roleRanks[role]
	return ok
}

// ValidMemberType reports whether t is a known member type.
func ValidMemberType(t string) bool {
	switch t {
	case MemberTypeCoach, MemberTypeAthlete, MemberTypeParent:
		return true
	default:
		return false
	}
}

// AtLeast reports whether role meets the minimum role requirement.
// Unknown roles never satisfy any requirement.
func AtLeast(role, min string) bool {
	r, ok := roleRanks[role]
	if !ok {
		return false
	}
	m, ok := roleRanks[min]
	if !ok {
		return false
	}
	return r <= m
}
