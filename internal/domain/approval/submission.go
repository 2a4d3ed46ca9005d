package approval

import "time"

// SubmissionStatus is the owner-facing lifecycle of a submission.
type SubmissionStatus string

const (
	SubmissionDraft = SubmissionStatus("DRAFT")
	// SubmissionSubmitted means approval records exist for the current
	// revision and the submission is read-only to its owner.
	SubmissionSubmitted = SubmissionStatus("SUBMITTED")
	// SubmissionResubmissionRequired is set when any tier rejects; the owner
	// must revise and resubmit, which bumps the revision.
	SubmissionResubmissionRequired = SubmissionStatus("RESUBMISSION_REQUIRED")
)

var validSubmissionStatuses = map[SubmissionStatus]bool{
	SubmissionDraft:                true,
	SubmissionSubmitted:            true,
	SubmissionResubmissionRequired: true,
}

// IsValid returns true if the status is a known submission status.
func (s SubmissionStatus) IsValid() bool {
	return validSubmissionStatuses[s]
}

// Submission is a period-scoped bundle of logged hours by one owner. The
// owner's role is snapshotted at submission and never changes for the life
// of the submission's records, even if the user is later promoted.
type Submission struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	OwnerRole   Role             `json:"owner_role_at_submission"`
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	Revision    int              `json:"revision"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ScopeHours is the per-scope hour totals supplied by the time-entry source
// for one submission.
type ScopeHours struct {
	ScopeID       string  `json:"scope_id"`
	TotalHours    float64 `json:"total_hours"`
	BillableHours float64 `json:"billable_hours"`
}
