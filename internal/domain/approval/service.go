package approval

import (
	"context"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

// Service defines the manager approval workflow over closed sessions.
// pending -> approved|rejected, terminal either way.
type Service interface {
	// Approve commits an approval and dispatches exactly one notification to
	// the session owner. Notification failure surfaces as a warning on the
	// response, never as an error.
	Approve(ctx context.Context, req ApproveRequest) (DecisionResponse, error)

	// Reject commits a rejection with a mandatory reason.
	Reject(ctx context.Context, req RejectRequest) (DecisionResponse, error)

	// BulkApprove applies Approve to each id independently and reports
	// per-id outcomes rather than failing the batch.
	BulkApprove(ctx context.Context, req BulkApproveRequest) (BulkApproveResponse, error)

	// ListPending lists sessions awaiting review for a manager's scope.
	ListPending(ctx context.Context, organizationID string, filter PendingFilter) (session.ListSessionsResponse, error)
}
