package approval

import "errors"

var (
	// ErrDenied is returned when the actor lacks the role or scope role
	// required for the requested tier action.
	ErrDenied = errors.New("actor not authorized for tier action")

	// ErrConflict is returned when the caller acted on stale state: a stale
	// revision, a frozen record, or a tier that is not in the expected
	// status. The caller must re-read before retrying.
	ErrConflict = errors.New("record state conflict")

	// ErrValidation is returned for malformed actions, such as a REJECT
	// without a reason or an unknown tier.
	ErrValidation = errors.New("invalid action")

	// ErrNotFound is returned when the referenced record or submission does
	// not exist.
	ErrNotFound = errors.New("not found")
)
