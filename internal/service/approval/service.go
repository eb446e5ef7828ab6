package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/approval"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

const transitionApproval = "approval"

type ApprovalServiceImpl struct {
	repo      approval.Repository
	notifSvc  notification.Service
	publisher session.EventPublisher
	now       func() time.Time
}

// NewApprovalService builds the manager review workflow. notifSvc and
// publisher may be nil in contexts without outbound delivery or a push
// channel.
func NewApprovalService(
	repo approval.Repository,
	notifSvc notification.Service,
	publisher session.EventPublisher,
) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		repo:      repo,
		notifSvc:  notifSvc,
		publisher: publisher,
		now:       time.Now,
	}
}

var _ approval.Service = (*ApprovalServiceImpl)(nil)

// Approve implements approval.Service.
func (a *ApprovalServiceImpl) Approve(ctx context.Context, req approval.ApproveRequest) (approval.DecisionResponse, error) {
	decided, err := a.repo.Decide(ctx, approval.Decision{
		SessionID:      req.SessionID,
		OrganizationID: req.OrganizationID,
		Status:         session.ApprovalApproved,
		ManagerID:      req.ManagerID,
		DecidedAt:      a.now().UTC(),
		Notes:          req.Notes,
	})
	if err != nil {
		return approval.DecisionResponse{}, mapDecideError(err)
	}

	return a.finishDecision(ctx, decided, req.ManagerID, notification.TypeSessionApproved,
		"Session Approved",
		fmt.Sprintf("Your session on %s was approved", decided.StartedAt.Format("2006-01-02"))), nil
}

// Reject implements approval.Service.
func (a *ApprovalServiceImpl) Reject(ctx context.Context, req approval.RejectRequest) (approval.DecisionResponse, error) {
	if err := req.Validate(); err != nil {
		return approval.DecisionResponse{}, err
	}

	decided, err := a.repo.Decide(ctx, approval.Decision{
		SessionID:      req.SessionID,
		OrganizationID: req.OrganizationID,
		Status:         session.ApprovalRejected,
		ManagerID:      req.ManagerID,
		DecidedAt:      a.now().UTC(),
		Reason:         &req.Reason,
	})
	if err != nil {
		return approval.DecisionResponse{}, mapDecideError(err)
	}

	return a.finishDecision(ctx, decided, req.ManagerID, notification.TypeSessionRejected,
		"Session Rejected",
		fmt.Sprintf("Your session on %s was rejected: %s", decided.StartedAt.Format("2006-01-02"), req.Reason)), nil
}

// BulkApprove implements approval.Service. Members of the batch are
// independent; one already-decided session must not cost a manager the
// other 49 approvals.
func (a *ApprovalServiceImpl) BulkApprove(ctx context.Context, req approval.BulkApproveRequest) (approval.BulkApproveResponse, error) {
	if err := req.Validate(); err != nil {
		return approval.BulkApproveResponse{}, err
	}

	result := approval.BulkApproveResponse{
		Failures: make(map[string]string),
	}

	for _, id := range req.SessionIDs {
		_, err := a.Approve(ctx, approval.ApproveRequest{
			SessionID:      id,
			ManagerID:      req.ManagerID,
			OrganizationID: req.OrganizationID,
			Notes:          req.Notes,
		})
		if err != nil {
			result.Failed++
			result.Failures[id] = err.Error()
			continue
		}
		result.Succeeded++
	}

	if result.Failed == 0 {
		result.Failures = nil
	}

	return result, nil
}

// ListPending implements approval.Service.
func (a *ApprovalServiceImpl) ListPending(ctx context.Context, organizationID string, filter approval.PendingFilter) (session.ListSessionsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	sessions, total, err := a.repo.ListPending(ctx, organizationID, filter)
	if err != nil {
		return session.ListSessionsResponse{}, fmt.Errorf("failed to list pending sessions: %w", err)
	}

	responses := make([]session.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		responses = append(responses, session.ToResponse(sess))
	}

	return session.ListSessionsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Sessions:   responses,
	}, nil
}

// finishDecision publishes the change and dispatches the post-commit
// notification. The decision is already durable; a delivery fault is
// reported as a warning on the response, never unwound.
func (a *ApprovalServiceImpl) finishDecision(
	ctx context.Context,
	decided session.Session,
	managerID string,
	notifType notification.NotificationType,
	title, message string,
) approval.DecisionResponse {
	if a.publisher != nil {
		a.publisher.Publish(decided.WorkerID, session.Event{Type: session.EventUpdated, Session: decided})
	}

	resp := approval.DecisionResponse{Session: session.ToResponse(decided)}

	if a.notifSvc == nil {
		return resp
	}

	_, err := a.notifSvc.DispatchDecision(ctx, notification.DecisionDispatch{
		OrganizationID: decided.OrganizationID,
		RecipientID:    decided.WorkerID,
		SenderID:       &managerID,
		SessionID:      decided.ID,
		Transition:     transitionApproval,
		Decision:       decided.ApprovalStatus,
		Type:           notifType,
		Title:          title,
		Message:        message,
		Data: map[string]interface{}{
			"session_id": decided.ID,
			"decided_by": managerID,
			"decision":   decided.ApprovalStatus,
		},
	})
	if err != nil {
		slog.Warn("Decision notification not delivered",
			"session_id", decided.ID,
			"worker_id", decided.WorkerID,
			"error", err)
		warning := fmt.Sprintf("decision recorded, notification not delivered: %v", err)
		resp.NotifyWarning = &warning
	}

	return resp
}

func mapDecideError(err error) error {
	switch {
	case errors.Is(err, approval.ErrAlreadyDecided),
		errors.Is(err, approval.ErrSessionStillOpen),
		errors.Is(err, session.ErrSessionNotFound):
		return err
	default:
		return fmt.Errorf("failed to record decision: %w", err)
	}
}
