package port

import (
	"context"
	"time"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
)

// RecordStore defines persistence operations for ApprovalRecord.
type RecordStore interface {
	// Create inserts a new record. Fails if a record already exists for the
	// same (submission, scope, revision).
	Create(ctx context.Context, rec *approval.ApprovalRecord) error

	// GetByID retrieves a record by its ID. Returns approval.ErrNotFound if
	// it does not exist.
	GetByID(ctx context.Context, id string) (*approval.ApprovalRecord, error)

	// ListBySubmission retrieves all records of one submission revision.
	ListBySubmission(ctx context.Context, submissionID string, revision int) ([]*approval.ApprovalRecord, error)

	// ListCurrentByPeriod retrieves records belonging to the current
	// revision of submissions overlapping the period.
	ListCurrentByPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]*approval.ApprovalRecord, error)

	// ApplyTransition persists a patched record with a conditional write
	// keyed on the previous (revision, overall_state). Returns
	// approval.ErrConflict when a concurrent writer got there first. This is
	// the sole synchronization mechanism for transitions.
	ApplyTransition(ctx context.Context, rec *approval.ApprovalRecord, prevState approval.OverallState) error
}

// SubmissionStore defines persistence operations for Submission.
type SubmissionStore interface {
	Create(ctx context.Context, sub *approval.Submission) error
	GetByID(ctx context.Context, id string) (*approval.Submission, error)
	// Update persists status and revision changes.
	Update(ctx context.Context, sub *approval.Submission) error
}

// EventStore defines the append-only transition log.
type EventStore interface {
	Append(ctx context.Context, ev *approval.TransitionEvent) error
	ListByRecord(ctx context.Context, recordID string) ([]*approval.TransitionEvent, error)
}

// TransactionManager handles database transactions. The callback receives a
// context carrying the transaction; repositories pick it up transparently.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
