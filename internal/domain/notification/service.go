package notification

import (
	"context"
)

// Dispatcher is the external delivery collaborator (mail, chat webhook,
// mobile push). Fire-and-forget with retry; never a transaction participant.
type Dispatcher interface {
	Notify(ctx context.Context, recipient string, template string, data map[string]interface{}) (deliveryID string, err error)
}

// Service handles idempotent outbound dispatch plus the in-app inbox.
type Service interface {
	// DispatchDecision delivers exactly one external notification per
	// logical approval transition, guarded by the idempotency ledger, and
	// records an inbox entry for the recipient. Safe to retry.
	DispatchDecision(ctx context.Context, req DecisionDispatch) (DispatchResult, error)

	// GetNotifications retrieves paginated inbox entries for a user.
	GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*NotificationListResponse, error)

	// GetUnreadCount returns the count of unread notifications.
	GetUnreadCount(ctx context.Context, userID string) (int, error)

	// MarkAsRead marks specified notifications as read.
	MarkAsRead(ctx context.Context, userID string, req MarkAsReadRequest) error

	// MarkAllAsRead marks all notifications as read for a user.
	MarkAllAsRead(ctx context.Context, userID string) error
}
