package approval

import "time"

// EventOutcome says whether an attempted transition was applied.
type EventOutcome string

const (
	OutcomeApplied EventOutcome = "APPLIED"
	OutcomeDenied  EventOutcome = "DENIED"
)

// TransitionEvent is one immutable entry in the approval audit trail. Every
// attempt produces one: applied transitions are appended to the record's
// durable trail and forwarded to the audit sink; denied attempts carry
// OutcomeDenied, leave the record untouched, and reach the sink only.
// Events are never updated or deleted.
type TransitionEvent struct {
	ID         string       `json:"id"`
	RecordID   string       `json:"record_id"`
	Revision   int          `json:"revision"`
	Tier       Tier         `json:"tier"`
	FromStatus TierStatus   `json:"from_status"`
	ToStatus   TierStatus   `json:"to_status"`
	ActorID    string       `json:"actor_id"`
	ActorRole  Role         `json:"actor_role"`
	Outcome    EventOutcome `json:"outcome"`
	Reason     string       `json:"reason,omitempty"`
	At         time.Time    `json:"at"`
}
