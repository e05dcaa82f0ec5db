package identity

// AdminRole is a company admin's role. The set is closed: every company has
// exactly one owner, and managers hold a strict subset of owner permissions.
type AdminRole = string

const (
	// RoleOwner may do everything within the company, including mutating
	// settings and membership.
	RoleOwner AdminRole = "owner"
	// RoleManager may run sessions and read everything but may not mutate
	// company settings or membership.
	RoleManager AdminRole = "manager"
)

var roleHierarchy = map[AdminRole]int{
	RoleManager: 0,
	RoleOwner:   1,
}

// ParseAdminRole validates a stored role string.
func ParseAdminRole(s string) (AdminRole, bool) {
	switch s {
	case RoleOwner, RoleManager:
		return s, true
	default:
		return "", false
	}
}

// RoleIsValid checks if the role is one of the predefined valid roles.
func RoleIsValid(r AdminRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// RoleIsAtLeast reports whether role meets the minimum required level.
// Unknown roles never satisfy anything.
func RoleIsAtLeast(role, minRole AdminRole) bool {
	have, ok := roleHierarchy[role]
	if !ok {
		return false
	}
	want, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return have >= want
}

// RoleCanManageSettings gates settings-mutating operations: owner only.
func RoleCanManageSettings(r AdminRole) bool {
	return r == RoleOwner
}

// RoleCanManageMembers gates membership changes: owner only.
func RoleCanManageMembers(r AdminRole) bool {
	return r == RoleOwner
}
