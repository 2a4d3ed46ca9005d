package approval

// OverallState is the derived state of an approval record.
type OverallState string

const (
	StateInReview           OverallState = "IN_REVIEW"
	StateLeadRejected       OverallState = "LEAD_REJECTED"
	StateManagerRejected    OverallState = "MANAGER_REJECTED"
	StateManagementRejected OverallState = "MANAGEMENT_REJECTED"
	StateFrozen             OverallState = "FROZEN"
)

var validStates = map[OverallState]bool{
	StateInReview:           true,
	StateLeadRejected:       true,
	StateManagerRejected:    true,
	StateManagementRejected: true,
	StateFrozen:             true,
}

var rejectedStates = map[Tier]OverallState{
	TierLead:       StateLeadRejected,
	TierManager:    StateManagerRejected,
	TierManagement: StateManagementRejected,
}

// RejectedState returns the overall state produced by rejecting the tier.
func RejectedState(t Tier) OverallState {
	return rejectedStates[t]
}

// IsValid returns true if the state is a known overall state.
func (s OverallState) IsValid() bool {
	return validStates[s]
}

// IsTerminal returns true for FROZEN, the only terminal state. Rejected
// states are resolved by a resubmission, which produces a new record.
func (s OverallState) IsTerminal() bool {
	return s == StateFrozen
}

// IsRejected returns true if the state records a tier rejection.
func (s OverallState) IsRejected() bool {
	return s == StateLeadRejected || s == StateManagerRejected || s == StateManagementRejected
}

// String returns the string representation of the state.
func (s OverallState) String() string {
	return string(s)
}
