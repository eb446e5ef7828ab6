package session

import "errors"

// Session domain errors
var (
	// State machine errors
	ErrAlreadyActive        = errors.New("an open session already exists for this worker")
	ErrNoActiveSession      = errors.New("no open session found for this worker")
	ErrOperationInProgress  = errors.New("another session operation is already in flight for this worker")
	ErrTransitionIncomplete = errors.New("session was closed but the follow-up session could not be opened; please clock in again")

	// General errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionStillOpen = errors.New("session is still open")
	ErrUnauthorized     = errors.New("unauthorized to access this session")
)
