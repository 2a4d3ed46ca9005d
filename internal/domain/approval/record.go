package approval

import (
	"time"

	"github.com/google/uuid"
)

// TierDecision holds the review outcome of a single tier.
type TierDecision struct {
	Status  TierStatus `json:"status"`
	ActorID string     `json:"actor_id,omitempty"`
	At      *time.Time `json:"at,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// ApprovalRecord is the approval chain for one (submission, scope) pair at
// one revision. Records from superseded revisions are retained untouched;
// a record is never deleted.
type ApprovalRecord struct {
	ID                    string       `json:"id"`
	SubmissionID          string       `json:"submission_id"`
	ScopeID               string       `json:"scope_id"`
	OwnerID               string       `json:"owner_id"`
	OwnerRoleAtSubmission Role         `json:"owner_role_at_submission"`
	Revision              int          `json:"revision"`
	// Version counts writes to this row. The store's conditional write
	// compares it so that two concurrent decisions against the same loaded
	// state can never both land, even when they target different tiers.
	Version    int          `json:"version"`
	Lead       TierDecision `json:"lead_tier"`
	Manager    TierDecision `json:"manager_tier"`
	Management TierDecision `json:"management_tier"`
	Overall    OverallState `json:"overall_state"`
	// Bypassed marks that a manager approved while the lead tier was still
	// pending. Once set it is never cleared.
	Bypassed  bool       `json:"bypassed"`
	FrozenAt  *time.Time `json:"frozen_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewRecord creates the approval record for one scope of a submission,
// deriving tier requirements from the owner's role at submission time.
// Owners whose role requires no review come back already frozen.
func NewRecord(submissionID, scopeID, ownerID string, ownerRole Role, revision int, now time.Time) *ApprovalRecord {
	rec := &ApprovalRecord{
		ID:                    uuid.NewString(),
		SubmissionID:          submissionID,
		ScopeID:               scopeID,
		OwnerID:               ownerID,
		OwnerRoleAtSubmission: ownerRole,
		Revision:              revision,
		Overall:               StateInReview,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	for _, t := range Tiers {
		status := StatusNotRequired
		if TierRequired(ownerRole, t) {
			status = StatusPending
		}
		rec.setTier(t, TierDecision{Status: status})
	}

	if SelfApproving(ownerRole) {
		at := now
		rec.Management = TierDecision{Status: StatusApproved, ActorID: ownerID, At: &at}
		rec.Overall = StateFrozen
		rec.FrozenAt = &at
	}

	return rec
}

// TierDecisionFor returns the decision for the given tier.
func (r *ApprovalRecord) TierDecisionFor(t Tier) TierDecision {
	switch t {
	case TierLead:
		return r.Lead
	case TierManager:
		return r.Manager
	case TierManagement:
		return r.Management
	}
	return TierDecision{}
}

func (r *ApprovalRecord) setTier(t Tier, d TierDecision) {
	switch t {
	case TierLead:
		r.Lead = d
	case TierManager:
		r.Manager = d
	case TierManagement:
		r.Management = d
	}
}

// EarlierTiersCleared returns true if every tier strictly before t is
// approved or not required.
func (r *ApprovalRecord) EarlierTiersCleared(t Tier) bool {
	for _, earlier := range Tiers {
		if !earlier.Before(t) {
			break
		}
		if !r.TierDecisionFor(earlier).Status.Cleared() {
			return false
		}
	}
	return true
}

// Frozen returns true if the record reached the terminal state.
func (r *ApprovalRecord) Frozen() bool {
	return r.Overall == StateFrozen
}

// Clone returns a deep copy of the record. The validator mutates a clone so
// a failed validation never leaves a half-patched record behind.
func (r *ApprovalRecord) Clone() *ApprovalRecord {
	cp := *r
	cp.Lead.At = copyTime(r.Lead.At)
	cp.Manager.At = copyTime(r.Manager.At)
	cp.Management.At = copyTime(r.Management.At)
	cp.FrozenAt = copyTime(r.FrozenAt)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
