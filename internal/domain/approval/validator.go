package approval

import (
	"fmt"
	"time"
)

// Transition is the result of a successfully validated action: the patched
// record plus the tier movement to be audited.
type Transition struct {
	Record     *ApprovalRecord
	Tier       Tier
	FromStatus TierStatus
	ToStatus   TierStatus
	Bypassed   bool
}

// Validate checks an action against a record and the acting identity and, if
// legal, returns the resulting transition. The input record is never
// mutated. Validation is pure: persistence-level races are caught later by
// the store's conditional write.
func Validate(rec *ApprovalRecord, actor Actor, action Action, now time.Time) (*Transition, error) {
	action = action.Normalize()

	if !action.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, action.Type)
	}
	if !action.Tier.IsValid() {
		return nil, fmt.Errorf("%w: unknown tier %q", ErrValidation, action.Tier)
	}
	if action.Type == ActionReject && action.Reason == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", ErrValidation)
	}

	if rec.Frozen() {
		return nil, fmt.Errorf("%w: record %s is frozen", ErrConflict, rec.ID)
	}

	if !actor.AuthorizedForTier(rec.ScopeID, action.Tier) {
		return nil, fmt.Errorf("%w: actor %s (%s) cannot act on tier %s", ErrDenied, actor.ID, actor.Role, action.Tier)
	}

	switch action.Type {
	case ActionApprove:
		return approve(rec, actor, action.Tier, now)
	case ActionReject:
		return reject(rec, actor, action.Tier, action.Reason, now)
	}
	return nil, fmt.Errorf("%w: unhandled action type %q", ErrValidation, action.Type)
}

func approve(rec *ApprovalRecord, actor Actor, tier Tier, now time.Time) (*Transition, error) {
	current := rec.TierDecisionFor(tier)
	if current.Status != StatusPending {
		return nil, fmt.Errorf("%w: tier %s is %s, not PENDING", ErrConflict, tier, current.Status)
	}

	bypass := false
	if !rec.EarlierTiersCleared(tier) {
		// The one sanctioned shortcut: a manager-or-above approving the
		// MANAGER tier while LEAD is still pending. A rejected LEAD tier is
		// not bypassable; the record is waiting on a resubmission.
		if tier == TierManager && rec.Lead.Status == StatusPending {
			bypass = true
		} else {
			return nil, fmt.Errorf("%w: earlier tier not cleared before %s", ErrConflict, tier)
		}
	}

	patched := rec.Clone()
	at := now
	patched.setTier(tier, TierDecision{Status: StatusApproved, ActorID: actor.ID, At: &at})
	if bypass {
		patched.Lead = TierDecision{Status: StatusNotRequired}
		patched.Bypassed = true
	}
	if tier == TierManagement {
		patched.Overall = StateFrozen
		patched.FrozenAt = &at
	}
	patched.UpdatedAt = now

	return &Transition{
		Record:     patched,
		Tier:       tier,
		FromStatus: current.Status,
		ToStatus:   StatusApproved,
		Bypassed:   bypass,
	}, nil
}

func reject(rec *ApprovalRecord, actor Actor, tier Tier, reason string, now time.Time) (*Transition, error) {
	current := rec.TierDecisionFor(tier)
	if current.Status != StatusPending {
		return nil, fmt.Errorf("%w: tier %s is %s, not PENDING", ErrConflict, tier, current.Status)
	}

	patched := rec.Clone()
	at := now
	patched.setTier(tier, TierDecision{Status: StatusRejected, ActorID: actor.ID, At: &at, Reason: reason})

	// Later tiers become moot until the owner resubmits. NOT_REQUIRED tiers
	// stay as they are, including a bypassed LEAD tier.
	for _, later := range Tiers {
		if !tier.Before(later) {
			continue
		}
		if patched.TierDecisionFor(later).Status != StatusNotRequired {
			patched.setTier(later, TierDecision{Status: StatusPending})
		}
	}

	patched.Overall = RejectedState(tier)
	patched.UpdatedAt = now

	return &Transition{
		Record:     patched,
		Tier:       tier,
		FromStatus: current.Status,
		ToStatus:   StatusRejected,
	}, nil
}
