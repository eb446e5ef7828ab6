package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/sse"
)

// Config holds notification service configuration
type Config struct {
	MaxAttempts    int           // default: 3
	AttemptTimeout time.Duration // default: 5 seconds
	BackoffBase    time.Duration // default: 500 milliseconds
	ClaimTTL       time.Duration // default: 5 minutes
}

type service struct {
	repo       notification.Repository
	ledger     notification.LedgerRepository
	dispatcher notification.Dispatcher
	hub        *sse.Hub
	config     Config
}

// NewNotificationService builds the idempotent dispatcher plus the in-app
// inbox. dispatcher is the external delivery collaborator; hub may be nil
// when no live stream is attached.
func NewNotificationService(
	repo notification.Repository,
	ledger notification.LedgerRepository,
	dispatcher notification.Dispatcher,
	hub *sse.Hub,
	cfg Config,
) notification.Service {
	// Set defaults
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.ClaimTTL == 0 {
		cfg.ClaimTTL = 5 * time.Minute
	}

	return &service{
		repo:       repo,
		ledger:     ledger,
		dispatcher: dispatcher,
		hub:        hub,
		config:     cfg,
	}
}

// DispatchDecision implements notification.Service. The ledger claim decides
// whether this logical event still owes a send; delivery then runs with a
// bounded retry budget. The decision that triggered the dispatch is already
// committed by the time we get here, so every outcome short of `sent`
// degrades to a reportable warning rather than a rollback.
func (s *service) DispatchDecision(ctx context.Context, req notification.DecisionDispatch) (notification.DispatchResult, error) {
	key := notification.DispatchKey(req.SessionID, req.Transition, req.Decision)

	payload := map[string]interface{}{
		"session_id": req.SessionID,
		"transition": req.Transition,
		"decision":   req.Decision,
		"recipient":  req.RecipientID,
	}

	if err := s.ledger.Claim(ctx, key, payload, s.config.ClaimTTL); err != nil {
		if errors.Is(err, notification.ErrAlreadyDispatched) {
			result := notification.DispatchResult{Key: key, Deduplicated: true}
			if rec, getErr := s.ledger.Get(ctx, key); getErr == nil && rec != nil && rec.DeliveryID != nil {
				result.DeliveryID = *rec.DeliveryID
			}
			return result, nil
		}
		if errors.Is(err, notification.ErrDispatchInProgress) {
			return notification.DispatchResult{}, err
		}
		return notification.DispatchResult{}, fmt.Errorf("failed to claim dispatch key: %w", err)
	}

	deliveryID, err := s.deliver(ctx, req)
	if err != nil {
		if markErr := s.ledger.MarkFailed(ctx, key, err.Error()); markErr != nil {
			slog.Error("Failed to finalize dispatch ledger entry", "key", key, "error", markErr)
		}
		return notification.DispatchResult{}, fmt.Errorf("%w: %v", notification.ErrDispatchFailed, err)
	}

	if err := s.ledger.MarkSent(ctx, key, deliveryID); err != nil {
		slog.Error("Failed to mark dispatch as sent", "key", key, "error", err)
	}

	s.recordInbox(ctx, req)

	return notification.DispatchResult{Key: key, DeliveryID: deliveryID}, nil
}

// deliver calls the external dispatcher with bounded retries, doubling the
// backoff between attempts and hard-capping each attempt.
func (s *service) deliver(ctx context.Context, req notification.DecisionDispatch) (string, error) {
	var lastErr error

	// The dispatcher only sees the payload map; fold the display fields in.
	data := make(map[string]interface{}, len(req.Data)+2)
	for k, v := range req.Data {
		data[k] = v
	}
	data["title"] = req.Title
	data["message"] = req.Message

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.config.AttemptTimeout)
		deliveryID, err := s.dispatcher.Notify(attemptCtx, req.RecipientID, string(req.Type), data)
		cancel()

		if err == nil {
			return deliveryID, nil
		}
		lastErr = err

		if attempt == s.config.MaxAttempts {
			break
		}
		if waitErr := wait(ctx, s.config.BackoffBase<<(attempt-1)); waitErr != nil {
			return "", waitErr
		}
	}

	return "", lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordInbox writes the in-app copy and pushes it over the live stream.
// Best effort; external delivery already succeeded.
func (s *service) recordInbox(ctx context.Context, req notification.DecisionDispatch) {
	n := &notification.Notification{
		ID:             uuid.New().String(),
		OrganizationID: req.OrganizationID,
		RecipientID:    req.RecipientID,
		SenderID:       req.SenderID,
		Type:           req.Type,
		Title:          req.Title,
		Message:        req.Message,
		Data:           req.Data,
		IsRead:         false,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		slog.Warn("Failed to record inbox notification", "recipient_id", n.RecipientID, "error", err)
		return
	}

	if s.hub != nil {
		s.hub.Publish(n.RecipientID, sse.Event{
			WorkerID: n.RecipientID,
			Event:    "notification",
			Data:     s.toResponse(n),
		})
	}
}

// toResponse converts a Notification entity to NotificationResponse
func (s *service) toResponse(n *notification.Notification) notification.NotificationResponse {
	return notification.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// GetNotifications retrieves paginated notifications for a user
func (s *service) GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.repo.ListByRecipient(ctx, userID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = s.toResponse(n)
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unreadCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// GetUnreadCount returns the count of unread notifications
func (s *service) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkAsRead marks specified notifications as read
func (s *service) MarkAsRead(ctx context.Context, userID string, req notification.MarkAsReadRequest) error {
	return s.repo.MarkAsRead(ctx, req.NotificationIDs, userID)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *service) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
