package approval

// Role is a system-wide role attached to a user account.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleLead       Role = "lead"
	RoleManager    Role = "manager"
	RoleManagement Role = "management"
	RoleSuperAdmin Role = "super_admin"
)

var validRoles = map[Role]bool{
	RoleEmployee:   true,
	RoleLead:       true,
	RoleManager:    true,
	RoleManagement: true,
	RoleSuperAdmin: true,
}

// IsValid returns true if the role is a known system role.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ScopeRole is a role held on a single allocation scope. Scope roles can
// unlock tier transitions on records in that scope even when the system
// role alone would not.
type ScopeRole string

const (
	ScopeRoleLead             ScopeRole = "lead"
	ScopeRoleManager          ScopeRole = "manager"
	ScopeRoleSecondaryManager ScopeRole = "secondary_manager"
)

// Actor is a resolved caller identity: system role plus scope-local roles
// keyed by scope ID. Authentication happens upstream; the approval core
// trusts the resolver.
type Actor struct {
	ID         string
	Role       Role
	ScopeRoles map[string][]ScopeRole
}

// HasScopeRole returns true if the actor holds the given role on the scope.
func (a Actor) HasScopeRole(scopeID string, role ScopeRole) bool {
	for _, r := range a.ScopeRoles[scopeID] {
		if r == role {
			return true
		}
	}
	return false
}

// AuthorizedForTier returns true if the actor may act on the given tier for a
// record in the given scope. LEAD and MANAGER are scope-gated; management and
// super admins act organization-wide.
func (a Actor) AuthorizedForTier(scopeID string, tier Tier) bool {
	switch tier {
	case TierLead:
		return a.HasScopeRole(scopeID, ScopeRoleLead) || a.Role == RoleSuperAdmin
	case TierManager:
		return a.HasScopeRole(scopeID, ScopeRoleManager) ||
			a.HasScopeRole(scopeID, ScopeRoleSecondaryManager) ||
			a.Role == RoleManagement || a.Role == RoleSuperAdmin
	case TierManagement:
		return a.Role == RoleManagement || a.Role == RoleSuperAdmin
	default:
		return false
	}
}
