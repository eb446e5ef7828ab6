package response

import (
	"errors"
	"net/http"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/approval"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Session domain errors
	switch {
	case errors.Is(err, session.ErrAlreadyActive):
		Conflict(w, "An open session already exists for this worker")
	case errors.Is(err, session.ErrNoActiveSession):
		Conflict(w, "No active session to close")
	case errors.Is(err, session.ErrOperationInProgress):
		Conflict(w, "Another transition is already in progress")
	case errors.Is(err, session.ErrTransitionIncomplete):
		Conflict(w, "Transition partially applied; worker is now off duty")
	case errors.Is(err, session.ErrSessionNotFound):
		NotFound(w, "Session not found")
	case errors.Is(err, session.ErrUnauthorized):
		Forbidden(w, "Not allowed to access this session")

	// Approval domain errors
	case errors.Is(err, approval.ErrAlreadyDecided):
		Conflict(w, "Session approval already decided")
	case errors.Is(err, approval.ErrSessionStillOpen):
		Conflict(w, "Session is still open; close it before deciding")

	// Notification domain errors
	case errors.Is(err, notification.ErrDispatchInProgress):
		Conflict(w, "Notification dispatch already in progress")
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
