package session

import (
	"time"
)

// Kind tags for work sessions. Any other tag is a break category chosen by
// the worker ("Coffee", "Lunch", "Rest", ...). A break closes the running
// work session and opens a new session carrying the break tag; resuming work
// opens a fresh session tagged KindWorkResumed.
const (
	KindWork        = "work"
	KindWorkResumed = "work_resumed"
)

// Approval statuses. Only meaningful once the session is closed.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

type Session struct {
	ID              string
	WorkerID        string
	OrganizationID  string
	StartedAt       time.Time
	EndedAt         *time.Time
	KindTag         string
	DurationMinutes *int
	ApprovalStatus  string
	ApprovedBy      *string
	ApprovedAt      *time.Time
	ApprovalNotes   *string
	RejectionReason *string
	Notes           *string
	TeamID          *string
	ShiftLabel      *string
	AutoClosed      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// DTO
	WorkerName *string
}

// IsOpen reports whether the session has not been closed yet.
func (s Session) IsOpen() bool {
	return s.EndedAt == nil
}

// IsBreak reports whether the session records a break rather than work.
func (s Session) IsBreak() bool {
	return s.KindTag != KindWork && s.KindTag != KindWorkResumed
}
