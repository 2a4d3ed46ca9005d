package repository

import (
	"context"
	"fmt"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
	"github.com/hourglass-hq/timesheet-approvals/pkg/database"
	"go.uber.org/zap"
)

// EntryRepository reads per-scope hour totals from the time_entries table.
// Entry CRUD belongs to the surrounding product; the approval core only
// aggregates.
type EntryRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *database.DB, logger *zap.Logger) *EntryRepository {
	return &EntryRepository{
		db:     db,
		logger: logger,
	}
}

// ScopeHours returns total and billable hours per scope for a submission.
// Scopes with no logged hours do not appear.
func (r *EntryRepository) ScopeHours(ctx context.Context, submissionID string) ([]approval.ScopeHours, error) {
	query := `
		SELECT scope_id,
			SUM(hours) AS total_hours,
			SUM(CASE WHEN billable = 1 THEN hours ELSE 0 END) AS billable_hours
		FROM time_entries
		WHERE submission_id = ?
		GROUP BY scope_id
		ORDER BY scope_id
	`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, submissionID)
	if err != nil {
		r.logger.Error("Failed to aggregate scope hours", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate scope hours: %w", err)
	}
	defer rows.Close()

	var hours []approval.ScopeHours
	for rows.Next() {
		var h approval.ScopeHours
		if err := rows.Scan(&h.ScopeID, &h.TotalHours, &h.BillableHours); err != nil {
			return nil, fmt.Errorf("failed to scan scope hours: %w", err)
		}
		hours = append(hours, h)
	}

	return hours, rows.Err()
}
