package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. The API layer maps
// each sentinel to exactly one transport status; nothing is swallowed.

var (
	// ErrNotFound means a referenced item, member, or swap request is absent.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden means the caller lacks the required ownership or role.
	ErrForbidden = errors.New("caller not permitted")

	// ErrPreconditionFailed means an item is not in the required availability
	// status, or an ownership invariant was violated at creation.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidTransition means the requested state change is not reachable
	// from the swap request's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict means an equivalent swap request is already active.
	ErrConflict = errors.New("duplicate active swap request")
)
