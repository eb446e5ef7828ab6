package approval

import "errors"

// Approval domain errors
var (
	ErrAlreadyDecided   = errors.New("session has already been approved or rejected")
	ErrSessionStillOpen = errors.New("session must be closed before it can be reviewed")
)
