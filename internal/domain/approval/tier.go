package approval

// Tier identifies one stage of the approval chain, in strict order:
// LEAD < MANAGER < MANAGEMENT.
type Tier string

const (
	TierLead       Tier = "LEAD"
	TierManager    Tier = "MANAGER"
	TierManagement Tier = "MANAGEMENT"
)

var tierOrder = map[Tier]int{
	TierLead:       0,
	TierManager:    1,
	TierManagement: 2,
}

// Tiers lists all tiers in ascending order.
var Tiers = []Tier{TierLead, TierManager, TierManagement}

// Order returns the tier's position in the chain (0-based). Invalid tiers
// return -1.
func (t Tier) Order() int {
	if o, ok := tierOrder[t]; ok {
		return o
	}
	return -1
}

// IsValid returns true if the tier is one of LEAD, MANAGER, MANAGEMENT.
func (t Tier) IsValid() bool {
	_, ok := tierOrder[t]
	return ok
}

// Before returns true if t comes strictly before other in the chain.
func (t Tier) Before(other Tier) bool {
	return t.Order() >= 0 && other.Order() >= 0 && t.Order() < other.Order()
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// TierStatus is the per-tier review status.
type TierStatus string

const (
	StatusNotRequired TierStatus = "NOT_REQUIRED"
	StatusPending     TierStatus = "PENDING"
	StatusApproved    TierStatus = "APPROVED"
	StatusRejected    TierStatus = "REJECTED"
)

var validTierStatuses = map[TierStatus]bool{
	StatusNotRequired: true,
	StatusPending:     true,
	StatusApproved:    true,
	StatusRejected:    true,
}

// IsValid returns true if the status is a known tier status.
func (s TierStatus) IsValid() bool {
	return validTierStatuses[s]
}

// Cleared returns true if the tier no longer blocks later tiers.
func (s TierStatus) Cleared() bool {
	return s == StatusApproved || s == StatusNotRequired
}

// String returns the string representation of the status.
func (s TierStatus) String() string {
	return string(s)
}
