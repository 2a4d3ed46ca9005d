package repository

import (
	"context"
	"fmt"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
	"github.com/hourglass-hq/timesheet-approvals/pkg/database"
	"go.uber.org/zap"
)

// EventRepository is the append-only transition log. Rows are never updated
// or deleted.
type EventRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB, logger *zap.Logger) *EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one transition event
func (r *EventRepository) Append(ctx context.Context, ev *approval.TransitionEvent) error {
	query := `
		INSERT INTO transition_events (
			id, record_id, revision, tier, from_status, to_status,
			actor_id, actor_role, outcome, reason, at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		ev.ID,
		ev.RecordID,
		ev.Revision,
		string(ev.Tier),
		string(ev.FromStatus),
		string(ev.ToStatus),
		ev.ActorID,
		string(ev.ActorRole),
		string(ev.Outcome),
		ev.Reason,
		ev.At,
	)
	if err != nil {
		r.logger.Error("Failed to append transition event", zap.String("record_id", ev.RecordID), zap.Error(err))
		return fmt.Errorf("failed to append transition event: %w", err)
	}

	return nil
}

// ListByRecord returns a record's transition trail, oldest first
func (r *EventRepository) ListByRecord(ctx context.Context, recordID string) ([]*approval.TransitionEvent, error) {
	query := `
		SELECT id, record_id, revision, tier, from_status, to_status,
			actor_id, actor_role, outcome, reason, at
		FROM transition_events
		WHERE record_id = ?
		ORDER BY at, id
	`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, recordID)
	if err != nil {
		r.logger.Error("Failed to list transition events", zap.String("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to list transition events: %w", err)
	}
	defer rows.Close()

	var events []*approval.TransitionEvent
	for rows.Next() {
		var ev approval.TransitionEvent
		var tier, from, to, role, outcome string
		err := rows.Scan(
			&ev.ID,
			&ev.RecordID,
			&ev.Revision,
			&tier,
			&from,
			&to,
			&ev.ActorID,
			&role,
			&outcome,
			&ev.Reason,
			&ev.At,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition event: %w", err)
		}
		ev.Tier = approval.Tier(tier)
		ev.FromStatus = approval.TierStatus(from)
		ev.ToStatus = approval.TierStatus(to)
		ev.ActorRole = approval.Role(role)
		ev.Outcome = approval.EventOutcome(outcome)
		events = append(events, &ev)
	}

	return events, rows.Err()
}
