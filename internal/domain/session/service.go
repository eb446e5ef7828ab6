package session

import (
	"context"
)

// Service defines the attendance state machine. Transitions move a worker
// between off-duty, working and on-break; every transition is re-checked
// against the store so retried or duplicated requests fail with
// ErrAlreadyActive / ErrNoActiveSession instead of creating duplicates.
type Service interface {
	// ClockIn opens a new work session. Fails with ErrAlreadyActive when an
	// open session exists for the worker.
	ClockIn(ctx context.Context, req ClockInRequest) (SessionResponse, error)

	// ClockOut closes the current work session and leaves it pending
	// approval. Fails with ErrNoActiveSession when nothing is open.
	ClockOut(ctx context.Context, req ClockOutRequest) (SessionResponse, error)

	// StartBreak closes the running work session and opens a break session
	// tagged with the break type.
	StartBreak(ctx context.Context, req StartBreakRequest) (SessionResponse, error)

	// EndBreak closes the break session and opens a fresh work session. When
	// the close half succeeds but the open half fails the worker ends up off
	// duty and the call reports ErrTransitionIncomplete.
	EndBreak(ctx context.Context, req EndBreakRequest) (SessionResponse, error)

	// CurrentState returns the worker's durable attendance state.
	CurrentState(ctx context.Context, workerID string) (CurrentStateResponse, error)

	// GetSession retrieves one session within the requester's organization.
	// Non-managers may only read their own sessions; anything else fails
	// with ErrUnauthorized.
	GetSession(ctx context.Context, id, organizationID, requesterID string, isManager bool) (SessionResponse, error)

	// GetMySessions retrieves a worker's session history.
	GetMySessions(ctx context.Context, workerID string, filter MySessionsFilter) (ListSessionsResponse, error)

	// ListTeamSessions retrieves all sessions of an organization for a date.
	ListTeamSessions(ctx context.Context, organizationID string, filter TeamSessionsFilter) (ListSessionsResponse, error)

	// ReapStale force-closes sessions left open past the safety window and
	// flags them for manager review. Idempotent; returns the number closed.
	ReapStale(ctx context.Context) (int, error)
}
