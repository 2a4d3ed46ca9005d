package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
	"github.com/hourglass-hq/timesheet-approvals/pkg/database"
	"go.uber.org/zap"
)

// RecordRepository persists approval records in sqlite.
type RecordRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *database.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `
	id, submission_id, scope_id, owner_id, owner_role, revision, version,
	lead_status, lead_actor_id, lead_at, lead_reason,
	manager_status, manager_actor_id, manager_at, manager_reason,
	management_status, management_actor_id, management_at, management_reason,
	overall_state, bypassed, frozen_at, created_at, updated_at`

// Create inserts a new approval record
func (r *RecordRepository) Create(ctx context.Context, rec *approval.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (` + recordColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		rec.ID,
		rec.SubmissionID,
		rec.ScopeID,
		rec.OwnerID,
		string(rec.OwnerRoleAtSubmission),
		rec.Revision,
		rec.Version,
		string(rec.Lead.Status), rec.Lead.ActorID, rec.Lead.At, rec.Lead.Reason,
		string(rec.Manager.Status), rec.Manager.ActorID, rec.Manager.At, rec.Manager.Reason,
		string(rec.Management.Status), rec.Management.ActorID, rec.Management.At, rec.Management.Reason,
		string(rec.Overall),
		rec.Bypassed,
		rec.FrozenAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval record", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	return nil
}

// GetByID retrieves an approval record by ID
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*approval.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records WHERE id = ?`

	rec, err := scanRecord(r.db.Conn(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: record %s", approval.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get approval record", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval record: %w", err)
	}

	return rec, nil
}

// ListBySubmission retrieves all records of one submission revision
func (r *RecordRepository) ListBySubmission(ctx context.Context, submissionID string, revision int) ([]*approval.ApprovalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM approval_records
		WHERE submission_id = ? AND revision = ?
		ORDER BY scope_id
	`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, submissionID, revision)
	if err != nil {
		r.logger.Error("Failed to list records by submission", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListCurrentByPeriod retrieves current-revision records of submissions
// overlapping the period.
func (r *RecordRepository) ListCurrentByPeriod(ctx context.Context, periodStart, periodEnd time.Time) ([]*approval.ApprovalRecord, error) {
	query := `
		SELECT ` + qualifiedRecordColumns("r") + `
		FROM approval_records r
		JOIN submissions s ON s.id = r.submission_id AND s.revision = r.revision
		WHERE s.period_start <= ? AND s.period_end >= ?
		ORDER BY r.scope_id, r.created_at
	`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, periodEnd, periodStart)
	if err != nil {
		r.logger.Error("Failed to list records by period", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ApplyTransition persists a patched record only if the stored row still
// matches the (version, revision, overall_state) the patch was derived
// from. Zero affected rows means a concurrent writer won the race.
func (r *RecordRepository) ApplyTransition(ctx context.Context, rec *approval.ApprovalRecord, prevState approval.OverallState) error {
	query := `
		UPDATE approval_records SET
			version = version + 1,
			lead_status = ?, lead_actor_id = ?, lead_at = ?, lead_reason = ?,
			manager_status = ?, manager_actor_id = ?, manager_at = ?, manager_reason = ?,
			management_status = ?, management_actor_id = ?, management_at = ?, management_reason = ?,
			overall_state = ?, bypassed = ?, frozen_at = ?, updated_at = ?
		WHERE id = ? AND revision = ? AND version = ? AND overall_state = ?
	`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query,
		string(rec.Lead.Status), rec.Lead.ActorID, rec.Lead.At, rec.Lead.Reason,
		string(rec.Manager.Status), rec.Manager.ActorID, rec.Manager.At, rec.Manager.Reason,
		string(rec.Management.Status), rec.Management.ActorID, rec.Management.At, rec.Management.Reason,
		string(rec.Overall),
		rec.Bypassed,
		rec.FrozenAt,
		rec.UpdatedAt,
		rec.ID,
		rec.Revision,
		rec.Version,
		string(prevState),
	)
	if err != nil {
		r.logger.Error("Failed to apply transition", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to apply transition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, rec.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: record %s changed concurrently", approval.ErrConflict, rec.ID)
	}

	rec.Version++
	return nil
}

func qualifiedRecordColumns(alias string) string {
	return alias + `.id, ` + alias + `.submission_id, ` + alias + `.scope_id, ` +
		alias + `.owner_id, ` + alias + `.owner_role, ` + alias + `.revision, ` + alias + `.version, ` +
		alias + `.lead_status, ` + alias + `.lead_actor_id, ` + alias + `.lead_at, ` + alias + `.lead_reason, ` +
		alias + `.manager_status, ` + alias + `.manager_actor_id, ` + alias + `.manager_at, ` + alias + `.manager_reason, ` +
		alias + `.management_status, ` + alias + `.management_actor_id, ` + alias + `.management_at, ` + alias + `.management_reason, ` +
		alias + `.overall_state, ` + alias + `.bypassed, ` + alias + `.frozen_at, ` + alias + `.created_at, ` + alias + `.updated_at`
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*approval.ApprovalRecord, error) {
	var rec approval.ApprovalRecord
	var ownerRole, leadStatus, managerStatus, managementStatus, overall string
	var leadAt, managerAt, managementAt, frozenAt sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.SubmissionID,
		&rec.ScopeID,
		&rec.OwnerID,
		&ownerRole,
		&rec.Revision,
		&rec.Version,
		&leadStatus, &rec.Lead.ActorID, &leadAt, &rec.Lead.Reason,
		&managerStatus, &rec.Manager.ActorID, &managerAt, &rec.Manager.Reason,
		&managementStatus, &rec.Management.ActorID, &managementAt, &rec.Management.Reason,
		&overall,
		&rec.Bypassed,
		&frozenAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.OwnerRoleAtSubmission = approval.Role(ownerRole)
	rec.Lead.Status = approval.TierStatus(leadStatus)
	rec.Manager.Status = approval.TierStatus(managerStatus)
	rec.Management.Status = approval.TierStatus(managementStatus)
	rec.Overall = approval.OverallState(overall)
	if leadAt.Valid {
		rec.Lead.At = &leadAt.Time
	}
	if managerAt.Valid {
		rec.Manager.At = &managerAt.Time
	}
	if managementAt.Valid {
		rec.Management.At = &managementAt.Time
	}
	if frozenAt.Valid {
		rec.FrozenAt = &frozenAt.Time
	}

	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*approval.ApprovalRecord, error) {
	var records []*approval.ApprovalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
