package approval

// tierRequirements is the single canonical (owner role, tier) -> required
// table. Both record creation and transition validation consume it; nothing
// else may re-derive tier requirements.
var tierRequirements = map[Role]map[Tier]bool{
	RoleEmployee:   {TierLead: true, TierManager: true, TierManagement: true},
	RoleLead:       {TierLead: false, TierManager: true, TierManagement: true},
	RoleManager:    {TierLead: false, TierManager: false, TierManagement: true},
	RoleManagement: {TierLead: false, TierManager: false, TierManagement: false},
	RoleSuperAdmin: {TierLead: false, TierManager: false, TierManagement: false},
}

// TierRequired reports whether the tier must approve records owned by a user
// who held the given role at submission time. The LEAD requirement for
// employee owners is soft: see Validator bypass handling.
func TierRequired(owner Role, tier Tier) bool {
	req, ok := tierRequirements[owner]
	if !ok {
		return false
	}
	return req[tier]
}

// SelfApproving reports whether the owner role requires no review at all;
// such submissions freeze immediately on submit.
func SelfApproving(owner Role) bool {
	for _, t := range Tiers {
		if TierRequired(owner, t) {
			return false
		}
	}
	return true
}
