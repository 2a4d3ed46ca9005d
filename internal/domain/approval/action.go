package approval

// ActionType is the kind of transition requested by a reviewer.
type ActionType string

const (
	ActionApprove ActionType = "APPROVE"
	ActionReject  ActionType = "REJECT"
	// ActionFreeze is shorthand for approving the MANAGEMENT tier, the
	// unique terminal transition.
	ActionFreeze ActionType = "FREEZE"
)

var validActionTypes = map[ActionType]bool{
	ActionApprove: true,
	ActionReject:  true,
	ActionFreeze:  true,
}

// IsValid returns true if the action type is known.
func (a ActionType) IsValid() bool {
	return validActionTypes[a]
}

// String returns the string representation of the action type.
func (a ActionType) String() string {
	return string(a)
}

// Action is a requested transition on one approval record.
type Action struct {
	Type   ActionType
	Tier   Tier
	Reason string
}

// Normalize resolves FREEZE into APPROVE(MANAGEMENT) so the validator only
// deals with two action kinds.
func (a Action) Normalize() Action {
	if a.Type == ActionFreeze {
		return Action{Type: ActionApprove, Tier: TierManagement, Reason: a.Reason}
	}
	return a
}
