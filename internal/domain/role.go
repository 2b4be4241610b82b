package domain

import "strings"

type Role string

const (
	RoleSuperAdmin Role = "Super Admin"
	RoleManager    Role = "Manager"
	RoleAgent      Role = "Agent"
)

// ParseRole accepts the spellings the backend and config files use
// ("super_admin", "SUPER ADMIN", "manager", ...). Unknown roles map to Agent,
// the least privileged one.
func ParseRole(s string) Role {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	switch norm {
	case "super admin", "superadmin":
		return RoleSuperAdmin
	case "manager":
		return RoleManager
	default:
		return RoleAgent
	}
}

func (r Role) CanDeleteLeads() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

func (r Role) CanWatchNewLeads() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

func (r Role) CanFilterByUser() bool {
	return r != RoleAgent
}

func (r Role) IsAgent() bool { return r == RoleAgent }
