package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
	"github.com/hourglass-hq/timesheet-approvals/pkg/database"
	"go.uber.org/zap"
)

// SubmissionRepository persists submissions in sqlite.
type SubmissionRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *database.DB, logger *zap.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new submission
func (r *SubmissionRepository) Create(ctx context.Context, sub *approval.Submission) error {
	query := `
		INSERT INTO submissions (
			id, owner_id, owner_role, period_start, period_end,
			revision, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		sub.ID,
		sub.OwnerID,
		string(sub.OwnerRole),
		sub.PeriodStart,
		sub.PeriodEnd,
		sub.Revision,
		string(sub.Status),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create submission", zap.String("id", sub.ID), zap.Error(err))
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*approval.Submission, error) {
	query := `
		SELECT id, owner_id, owner_role, period_start, period_end,
			revision, status, created_at, updated_at
		FROM submissions
		WHERE id = ?
	`

	var sub approval.Submission
	var ownerRole, status string

	err := r.db.Conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&sub.ID,
		&sub.OwnerID,
		&ownerRole,
		&sub.PeriodStart,
		&sub.PeriodEnd,
		&sub.Revision,
		&status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: submission %s", approval.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get submission", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	sub.OwnerRole = approval.Role(ownerRole)
	sub.Status = approval.SubmissionStatus(status)
	return &sub, nil
}

// Update persists status and revision changes
func (r *SubmissionRepository) Update(ctx context.Context, sub *approval.Submission) error {
	query := `
		UPDATE submissions
		SET revision = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query,
		sub.Revision,
		string(sub.Status),
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update submission", zap.String("id", sub.ID), zap.Error(err))
		return fmt.Errorf("failed to update submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: submission %s", approval.ErrNotFound, sub.ID)
	}

	return nil
}
