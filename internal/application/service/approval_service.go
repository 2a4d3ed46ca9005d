package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hourglass-hq/timesheet-approvals/internal/application/port"
	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
)

// Logger interface for minimal logging dependency.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DecideParams carries one transition request.
type DecideParams struct {
	RecordID string
	ActorID  string
	// Revision is the submission revision the caller read the record at.
	// Zero means "not supplied" (bulk decisions re-validate at write time
	// instead); any other stale value fails with approval.ErrConflict.
	Revision int
	Action   approval.Action
}

// BulkOutcome is the per-item result of DecideBulk. Outcomes keep the order
// of the input record IDs.
type BulkOutcome struct {
	RecordID string                `json:"record_id"`
	OK       bool                  `json:"ok"`
	NewState approval.OverallState `json:"new_state,omitempty"`
	Err      error                 `json:"-"`
	Error    string                `json:"error,omitempty"`
}

// ApprovalService orchestrates validated transitions against the store.
type ApprovalService interface {
	// SubmitForReview creates the current revision's approval records, one
	// per scope with logged hours, and returns their IDs.
	SubmitForReview(ctx context.Context, submissionID string) ([]string, error)

	// Resubmit bumps the submission revision after a rejection and creates
	// the new revision's records. Prior-revision records are kept untouched.
	Resubmit(ctx context.Context, submissionID string) ([]string, error)

	// Decide validates and atomically applies a single transition.
	Decide(ctx context.Context, p DecideParams) (*approval.ApprovalRecord, error)

	// DecideBulk applies the action to each record independently; one item's
	// failure never aborts its siblings.
	DecideBulk(ctx context.Context, recordIDs []string, actorID string, action approval.Action) []BulkOutcome

	// GetRecord retrieves one approval record.
	GetRecord(ctx context.Context, id string) (*approval.ApprovalRecord, error)

	// ListEvents returns the record's transition trail, oldest first.
	ListEvents(ctx context.Context, recordID string) ([]*approval.TransitionEvent, error)
}

type approvalServiceImpl struct {
	records     port.RecordStore
	submissions port.SubmissionStore
	events      port.EventStore
	entries     port.EntrySource
	identity    port.IdentityResolver
	txManager   port.TransactionManager
	audit       port.AuditSink
	notifier    port.NotificationDispatcher
	bulkWorkers int
	logger      Logger
	now         func() time.Time
}

// NewApprovalService creates a new ApprovalService. bulkWorkers bounds
// DecideBulk parallelism; values below 1 run the batch sequentially.
func NewApprovalService(
	records port.RecordStore,
	submissions port.SubmissionStore,
	events port.EventStore,
	entries port.EntrySource,
	identity port.IdentityResolver,
	txManager port.TransactionManager,
	audit port.AuditSink,
	notifier port.NotificationDispatcher,
	bulkWorkers int,
	logger Logger,
) ApprovalService {
	if bulkWorkers < 1 {
		bulkWorkers = 1
	}
	return &approvalServiceImpl{
		records:     records,
		submissions: submissions,
		events:      events,
		entries:     entries,
		identity:    identity,
		txManager:   txManager,
		audit:       audit,
		notifier:    notifier,
		bulkWorkers: bulkWorkers,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitForReview creates approval records for every scope with logged hours.
func (s *approvalServiceImpl) SubmitForReview(ctx context.Context, submissionID string) ([]string, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status == approval.SubmissionSubmitted {
		return nil, fmt.Errorf("%w: submission %s already submitted", approval.ErrConflict, submissionID)
	}
	if sub.Status == approval.SubmissionResubmissionRequired {
		return nil, fmt.Errorf("%w: submission %s needs Resubmit, not SubmitForReview", approval.ErrConflict, submissionID)
	}
	return s.createRecords(ctx, sub)
}

// Resubmit starts the next revision after a rejection.
func (s *approvalServiceImpl) Resubmit(ctx context.Context, submissionID string) ([]string, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != approval.SubmissionResubmissionRequired {
		return nil, fmt.Errorf("%w: submission %s is %s, not awaiting resubmission", approval.ErrConflict, submissionID, sub.Status)
	}
	sub.Revision++
	return s.createRecords(ctx, sub)
}

func (s *approvalServiceImpl) createRecords(ctx context.Context, sub *approval.Submission) ([]string, error) {
	hours, err := s.entries.ScopeHours(ctx, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("load scope hours: %w", err)
	}
	if len(hours) == 0 {
		return nil, fmt.Errorf("%w: submission %s has no logged hours", approval.ErrValidation, sub.ID)
	}

	now := s.now()
	recs := make([]*approval.ApprovalRecord, 0, len(hours))
	for _, h := range hours {
		recs = append(recs, approval.NewRecord(sub.ID, h.ScopeID, sub.OwnerID, sub.OwnerRole, sub.Revision, now))
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, rec := range recs {
			if err := s.records.Create(txCtx, rec); err != nil {
				return fmt.Errorf("create record: %w", err)
			}
			// Self-approving owners freeze at submit; that is a transition
			// and gets its audit entry like any other.
			if rec.Frozen() {
				ev := s.newEvent(rec, approval.TierManagement, approval.StatusNotRequired, approval.StatusApproved, rec.OwnerID, sub.OwnerRole, "", now)
				if err := s.events.Append(txCtx, ev); err != nil {
					return fmt.Errorf("append event: %w", err)
				}
			}
		}
		sub.Status = approval.SubmissionSubmitted
		sub.UpdatedAt = now
		if err := s.submissions.Update(txCtx, sub); err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to submit for review", "error", err, "submission_id", sub.ID)
		return nil, err
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
		if rec.Frozen() {
			s.notifier.Dispatch(port.Notification{
				RecordID: rec.ID,
				NewState: rec.Overall,
				OwnerID:  rec.OwnerID,
				ActorID:  rec.OwnerID,
			})
		}
	}
	s.logger.Info("Submission submitted for review",
		"submission_id", sub.ID, "revision", sub.Revision, "records", len(ids))
	return ids, nil
}

// Decide validates and applies one transition atomically.
func (s *approvalServiceImpl) Decide(ctx context.Context, p DecideParams) (*approval.ApprovalRecord, error) {
	actor, err := s.identity.Resolve(ctx, p.ActorID)
	if err != nil {
		return nil, fmt.Errorf("resolve actor %s: %w", p.ActorID, err)
	}

	rec, err := s.records.GetByID(ctx, p.RecordID)
	if err != nil {
		return nil, err
	}

	if p.Revision != 0 && p.Revision != rec.Revision {
		return nil, fmt.Errorf("%w: revision %d is stale, record is at %d", approval.ErrConflict, p.Revision, rec.Revision)
	}

	now := s.now()
	tr, err := approval.Validate(rec, actor, p.Action, now)
	if err != nil {
		// Denied attempts are audit material too; they go to the sink but
		// never into the record's durable trail.
		s.audit.Emit(s.deniedEvent(rec, p.Action.Tier, actor, err.Error(), now))
		s.logger.Info("Transition denied",
			"record_id", p.RecordID, "actor_id", p.ActorID, "action", p.Action.Type, "error", err)
		return nil, err
	}

	ev := s.newEvent(tr.Record, tr.Tier, tr.FromStatus, tr.ToStatus, actor.ID, actor.Role, p.Action.Reason, now)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// The conditional write is what makes concurrent decisions race
		// safely: the loser sees zero affected rows and gets a conflict.
		if err := s.records.ApplyTransition(txCtx, tr.Record, rec.Overall); err != nil {
			return err
		}
		if err := s.events.Append(txCtx, ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
		if tr.ToStatus == approval.StatusRejected {
			return s.flagResubmission(txCtx, rec.SubmissionID, now)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, approval.ErrConflict) {
			s.logger.Error("Failed to apply transition", "error", err, "record_id", p.RecordID)
		}
		return nil, err
	}

	// Side effects are best-effort and must never undo the commit.
	s.audit.Emit(ev)
	s.notifier.Dispatch(port.Notification{
		RecordID: tr.Record.ID,
		NewState: tr.Record.Overall,
		OwnerID:  tr.Record.OwnerID,
		ActorID:  actor.ID,
	})

	s.logger.Info("Transition applied",
		"record_id", tr.Record.ID, "tier", tr.Tier, "to", tr.ToStatus,
		"state", tr.Record.Overall, "actor_id", actor.ID, "bypass", tr.Bypassed)
	return tr.Record, nil
}

// DecideBulk applies the action to each record independently with bounded
// parallelism. A batch never aborts because one item conflicted.
func (s *approvalServiceImpl) DecideBulk(ctx context.Context, recordIDs []string, actorID string, action approval.Action) []BulkOutcome {
	outcomes := make([]BulkOutcome, len(recordIDs))
	sem := make(chan struct{}, s.bulkWorkers)
	var wg sync.WaitGroup

	for i, id := range recordIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := s.Decide(ctx, DecideParams{RecordID: id, ActorID: actorID, Action: action})
			if err != nil {
				outcomes[i] = BulkOutcome{RecordID: id, Err: err, Error: err.Error()}
				return
			}
			outcomes[i] = BulkOutcome{RecordID: id, OK: true, NewState: rec.Overall}
		}(i, id)
	}
	wg.Wait()

	return outcomes
}

// GetRecord retrieves one approval record.
func (s *approvalServiceImpl) GetRecord(ctx context.Context, id string) (*approval.ApprovalRecord, error) {
	return s.records.GetByID(ctx, id)
}

// ListEvents returns the record's transition trail.
func (s *approvalServiceImpl) ListEvents(ctx context.Context, recordID string) ([]*approval.TransitionEvent, error) {
	return s.events.ListByRecord(ctx, recordID)
}

func (s *approvalServiceImpl) flagResubmission(ctx context.Context, submissionID string, now time.Time) error {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("get submission: %w", err)
	}
	sub.Status = approval.SubmissionResubmissionRequired
	sub.UpdatedAt = now
	if err := s.submissions.Update(ctx, sub); err != nil {
		return fmt.Errorf("flag resubmission: %w", err)
	}
	return nil
}

func (s *approvalServiceImpl) newEvent(rec *approval.ApprovalRecord, tier approval.Tier, from, to approval.TierStatus, actorID string, actorRole approval.Role, reason string, at time.Time) *approval.TransitionEvent {
	return &approval.TransitionEvent{
		ID:         uuid.NewString(),
		RecordID:   rec.ID,
		Revision:   rec.Revision,
		Tier:       tier,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Outcome:    approval.OutcomeApplied,
		Reason:     reason,
		At:         at,
	}
}

// deniedEvent records a rejected attempt: the tier status stays where it was
// and the reason carries the denial.
func (s *approvalServiceImpl) deniedEvent(rec *approval.ApprovalRecord, tier approval.Tier, actor approval.Actor, reason string, at time.Time) *approval.TransitionEvent {
	status := rec.TierDecisionFor(tier).Status
	ev := s.newEvent(rec, tier, status, status, actor.ID, actor.Role, reason, at)
	ev.Outcome = approval.OutcomeDenied
	return ev
}
