package notification

import (
	"time"
)

// ========================================
// NOTIFICATION DTOs
// ========================================

// DecisionDispatch describes one approval-transition notification. The
// idempotency key is derived from (SessionID, Transition, Decision), so the
// same logical event always maps to the same ledger row.
type DecisionDispatch struct {
	OrganizationID string
	RecipientID    string
	SenderID       *string
	SessionID      string
	Transition     string
	Decision       string
	Type           NotificationType
	Title          string
	Message        string
	Data           map[string]interface{}
}

// DispatchResult reports how a dispatch concluded. Deduplicated is true when
// a sent ledger record short-circuited the send.
type DispatchResult struct {
	Key          string
	DeliveryID   string
	Deduplicated bool
}

type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int64                  `json:"total"`
	UnreadCount   int                    `json:"unread_count"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids"`
}
