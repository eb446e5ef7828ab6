package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeSessionApproved   NotificationType = "session_approved"
	TypeSessionRejected   NotificationType = "session_rejected"
	TypeSessionAutoClosed NotificationType = "session_auto_closed"
)

// Notification represents an in-app notification entity
type Notification struct {
	ID             string
	OrganizationID string
	RecipientID    string
	SenderID       *string
	Type           NotificationType
	Title          string
	Message        string
	Data           map[string]interface{}
	IsRead         bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}

// Dispatch ledger statuses. A key moves in_progress -> sent|failed; sent is
// terminal, failed allows a fresh attempt.
const (
	DispatchInProgress = "in_progress"
	DispatchSent       = "sent"
	DispatchFailed     = "failed"
)

// DispatchRecord is one row of the durable idempotency ledger. The key is
// derived deterministically from the logical event so duplicate clicks and
// retried requests collapse onto the same row.
type DispatchRecord struct {
	Key        string
	Status     string
	Payload    map[string]interface{}
	DeliveryID *string
	LastError  *string
	ClaimedAt  time.Time
	UpdatedAt  time.Time
}
