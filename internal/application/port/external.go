package port

import (
	"context"

	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
)

// EntrySource supplies, per submission, the scopes with logged hours and
// their totals. Time-entry CRUD lives in the surrounding product; the
// approval core only reads.
type EntrySource interface {
	ScopeHours(ctx context.Context, submissionID string) ([]approval.ScopeHours, error)
}

// IdentityResolver supplies the acting identity for a caller: system role
// plus scope-local roles. The core trusts it and performs no authentication.
type IdentityResolver interface {
	Resolve(ctx context.Context, actorID string) (approval.Actor, error)
}

// AuditSink accepts transition events for external consumption. Emit must
// not block and its failure never affects the committed transition.
type AuditSink interface {
	Emit(ev *approval.TransitionEvent)
}

// Notification is the payload handed to the dispatcher on every successful
// transition.
type Notification struct {
	RecordID string                `json:"record_id"`
	NewState approval.OverallState `json:"new_state"`
	OwnerID  string                `json:"owner_id"`
	ActorID  string                `json:"actor_id"`
}

// NotificationDispatcher delivers transition notifications. Fire-and-forget:
// Dispatch must not block and delivery guarantees are the dispatcher's
// concern, not the caller's.
type NotificationDispatcher interface {
	Dispatch(n Notification)
}
