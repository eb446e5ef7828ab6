package notification

import (
	"context"
	"time"
)

// Repository defines data access for the in-app notification inbox.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) ([]*Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkAsRead(ctx context.Context, ids []string, recipientID string) error
	MarkAllAsRead(ctx context.Context, recipientID string) error
}

// LedgerRepository is the durable idempotency ledger, keyed by the
// deterministic dispatch key. The claim pattern is read-check, write
// in_progress, finalize.
type LedgerRepository interface {
	// Claim records an in_progress entry for the key. Returns
	// ErrAlreadyDispatched when a sent record exists, ErrDispatchInProgress
	// when another claim younger than ttl holds the key. A failed or expired
	// claim is taken over.
	Claim(ctx context.Context, key string, payload map[string]interface{}, ttl time.Duration) error

	// MarkSent finalizes a claim as delivered.
	MarkSent(ctx context.Context, key string, deliveryID string) error

	// MarkFailed finalizes a claim as failed, keeping the last error. A
	// future distinct attempt may claim the key again.
	MarkFailed(ctx context.Context, key string, lastError string) error

	// Get returns the ledger record for a key, or nil when absent.
	Get(ctx context.Context, key string) (*DispatchRecord, error)
}
