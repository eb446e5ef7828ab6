package session

import (
	"context"
	"time"
)

// Repository defines data access for attendance sessions. The store enforces
// the one-open-session-per-worker invariant with a partial unique index;
// Create surfaces the store's rejection of a duplicate open row as
// ErrAlreadyActive, which callers must treat as authoritative.
type Repository interface {
	// Create inserts a new open session. Returns ErrAlreadyActive when the
	// worker already has an open session.
	Create(ctx context.Context, s Session) (Session, error)

	// GetByID retrieves a session with organization isolation.
	GetByID(ctx context.Context, id string, organizationID string) (Session, error)

	// GetOpenSession returns the worker's current open session, or nil when
	// the worker is off the clock.
	GetOpenSession(ctx context.Context, workerID string) (*Session, error)

	// Close sets ended_at and duration on an open session and marks it
	// pending approval. Returns ErrNoActiveSession when the session is
	// already closed or does not exist.
	Close(ctx context.Context, id string, endedAt time.Time, durationMinutes int, notes *string) (Session, error)

	// ForceClose closes an abandoned session on behalf of the reaper,
	// stamping the annotation and the auto-closed flag. Same no-op contract
	// as Close for rows already closed.
	ForceClose(ctx context.Context, id string, endedAt time.Time, durationMinutes int, annotation string) (Session, error)

	// ListStaleOpen returns open sessions started before the given cutoff.
	ListStaleOpen(ctx context.Context, openedBefore time.Time) ([]Session, error)

	// ListClosedByWorkerAndRange returns closed sessions whose start falls in
	// [from, to), ordered by start time. Used for summary computation.
	ListClosedByWorkerAndRange(ctx context.Context, workerID string, from, to time.Time) ([]Session, error)

	// ListMySessions returns a worker's sessions with pagination.
	ListMySessions(ctx context.Context, workerID string, filter MySessionsFilter) ([]Session, int64, error)

	// ListTeamByDate returns an organization's sessions for a calendar date,
	// optionally restricted to one team.
	ListTeamByDate(ctx context.Context, organizationID string, filter TeamSessionsFilter) ([]Session, int64, error)
}
