package session

import (
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// ========================================
// SESSION DTOs
// ========================================

type ClockInRequest struct {
	WorkerID       string  `json:"-"`
	OrganizationID string  `json:"-"`
	Notes          *string `json:"notes,omitempty"`
	TeamID         *string `json:"team_id,omitempty"`
	ShiftLabel     *string `json:"shift_label,omitempty"`
}

type ClockOutRequest struct {
	WorkerID string  `json:"-"`
	Notes    *string `json:"notes,omitempty"`
}

type StartBreakRequest struct {
	WorkerID  string `json:"-"`
	BreakType string `json:"break_type"`
}

func (r *StartBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.BreakType) {
		errs = append(errs, validator.ValidationError{
			Field:   "break_type",
			Message: "break_type is required",
		})
	}
	if validator.IsInSlice(r.BreakType, []string{KindWork, KindWorkResumed}) {
		errs = append(errs, validator.ValidationError{
			Field:   "break_type",
			Message: "break_type must not be a work kind tag",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EndBreakRequest struct {
	WorkerID string `json:"-"`
}

type SessionResponse struct {
	ID              string   `json:"id"`
	WorkerID        string   `json:"worker_id"`
	WorkerName      *string  `json:"worker_name,omitempty"`
	OrganizationID  string   `json:"organization_id"`
	KindTag         string   `json:"kind_tag"`
	IsBreak         bool     `json:"is_break"`
	StartedAt       string   `json:"started_at"`
	EndedAt         *string  `json:"ended_at,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	ApprovalStatus  string   `json:"approval_status,omitempty"`
	ApprovedBy      *string  `json:"approved_by,omitempty"`
	ApprovedAt      *string  `json:"approved_at,omitempty"`
	ApprovalNotes   *string  `json:"approval_notes,omitempty"`
	RejectionReason *string  `json:"rejection_reason,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
	TeamID          *string  `json:"team_id,omitempty"`
	ShiftLabel      *string  `json:"shift_label,omitempty"`
	AutoClosed      bool     `json:"auto_closed,omitempty"`
}

type MySessionsFilter struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
}

type TeamSessionsFilter struct {
	Date   string  `json:"date"`
	TeamID *string `json:"team_id,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f *TeamSessionsFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, ok := validator.IsValidDate(f.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListSessionsResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Sessions   []SessionResponse `json:"sessions"`
}

// CurrentStateResponse is the durable half of a worker's live view: the open
// session, if any. Tick-derived elapsed values are computed by the caller.
type CurrentStateResponse struct {
	IsActive       bool             `json:"is_active"`
	IsOnBreak      bool             `json:"is_on_break"`
	CurrentSession *SessionResponse `json:"current_session,omitempty"`
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

// ToResponse converts a Session entity to SessionResponse.
func ToResponse(s Session) SessionResponse {
	return SessionResponse{
		ID:              s.ID,
		WorkerID:        s.WorkerID,
		WorkerName:      s.WorkerName,
		OrganizationID:  s.OrganizationID,
		KindTag:         s.KindTag,
		IsBreak:         s.IsBreak(),
		StartedAt:       s.StartedAt.Format("2006-01-02 15:04:05"),
		EndedAt:         timePtrToString(s.EndedAt),
		DurationMinutes: s.DurationMinutes,
		ApprovalStatus:  s.ApprovalStatus,
		ApprovedBy:      s.ApprovedBy,
		ApprovedAt:      timePtrToString(s.ApprovedAt),
		ApprovalNotes:   s.ApprovalNotes,
		RejectionReason: s.RejectionReason,
		Notes:           s.Notes,
		TeamID:          s.TeamID,
		ShiftLabel:      s.ShiftLabel,
		AutoClosed:      s.AutoClosed,
	}
}
