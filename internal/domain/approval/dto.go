package approval

import (
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// ========================================
// APPROVAL DTOs
// ========================================

type ApproveRequest struct {
	SessionID      string  `json:"-"`
	ManagerID      string  `json:"-"`
	OrganizationID string  `json:"-"`
	Notes          *string `json:"notes,omitempty"`
}

type RejectRequest struct {
	SessionID      string `json:"-"`
	ManagerID      string `json:"-"`
	OrganizationID string `json:"-"`
	Reason         string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "rejection reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BulkApproveRequest struct {
	SessionIDs     []string `json:"session_ids"`
	ManagerID      string   `json:"-"`
	OrganizationID string   `json:"-"`
	Notes          *string  `json:"notes,omitempty"`
}

func (r *BulkApproveRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.SessionIDs) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "session_ids",
			Message: "at least one session id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DecisionResponse reports one committed approval decision. NotifyWarning is
// set when the decision stood but the outbound notification could not be
// delivered; the decision is never rolled back for a delivery failure.
type DecisionResponse struct {
	Session       session.SessionResponse `json:"session"`
	NotifyWarning *string                 `json:"notify_warning,omitempty"`
}

// BulkApproveResponse reports per-id outcomes. Members are independent:
// failures never roll back the successes.
type BulkApproveResponse struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
}

type PendingFilter struct {
	TeamID *string `json:"team_id,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

// Decision is the repository-level write for a terminal approval transition.
type Decision struct {
	SessionID      string
	OrganizationID string
	Status         string
	ManagerID      string
	DecidedAt      time.Time
	Notes          *string
	Reason         *string
}
