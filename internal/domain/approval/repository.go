package approval

import (
	"context"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

// Repository defines the approval-side data access over closed sessions.
// Decide is the only writer of approval fields; the store applies the
// transition once and rejects every later attempt.
type Repository interface {
	// Decide atomically moves a pending closed session to approved or
	// rejected. Returns ErrAlreadyDecided when a decision is already
	// recorded, ErrSessionStillOpen for open sessions and
	// session.ErrSessionNotFound for unknown ids.
	Decide(ctx context.Context, d Decision) (session.Session, error)

	// ListPending returns closed sessions awaiting review within an
	// organization, optionally filtered to one team.
	ListPending(ctx context.Context, organizationID string, filter PendingFilter) ([]session.Session, int64, error)
}
