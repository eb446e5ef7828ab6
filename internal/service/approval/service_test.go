package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/approval"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// fakeApprovalRepo applies the first decision per session and rejects every
// later one, mirroring the guarded UPDATE in the real store.
type fakeApprovalRepo struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newFakeApprovalRepo(sessions ...session.Session) *fakeApprovalRepo {
	m := make(map[string]*session.Session, len(sessions))
	for i := range sessions {
		s := sessions[i]
		m[s.ID] = &s
	}
	return &fakeApprovalRepo{sessions: m}
}

func (f *fakeApprovalRepo) Decide(ctx context.Context, d approval.Decision) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[d.SessionID]
	if !ok || s.OrganizationID != d.OrganizationID {
		return session.Session{}, session.ErrSessionNotFound
	}
	if s.EndedAt == nil {
		return session.Session{}, approval.ErrSessionStillOpen
	}
	if s.ApprovalStatus != session.ApprovalPending {
		return *s, approval.ErrAlreadyDecided
	}

	s.ApprovalStatus = d.Status
	s.ApprovedBy = &d.ManagerID
	s.ApprovedAt = &d.DecidedAt
	s.ApprovalNotes = d.Notes
	s.RejectionReason = d.Reason
	return *s, nil
}

func (f *fakeApprovalRepo) ListPending(ctx context.Context, organizationID string, filter approval.PendingFilter) ([]session.Session, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []session.Session
	for _, s := range f.sessions {
		if s.OrganizationID == organizationID && s.EndedAt != nil && s.ApprovalStatus == session.ApprovalPending {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

// countingNotifier records dispatches and optionally fails them.
type countingNotifier struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (c *countingNotifier) DispatchDecision(ctx context.Context, req notification.DecisionDispatch) (notification.DispatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return notification.DispatchResult{}, notification.ErrDispatchFailed
	}
	key := notification.DispatchKey(req.SessionID, req.Transition, req.Decision)
	return notification.DispatchResult{Key: key, DeliveryID: "dlv-1"}, nil
}

func (c *countingNotifier) GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	return &notification.NotificationListResponse{}, nil
}

func (c *countingNotifier) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (c *countingNotifier) MarkAsRead(ctx context.Context, userID string, req notification.MarkAsReadRequest) error {
	return nil
}

func (c *countingNotifier) MarkAllAsRead(ctx context.Context, userID string) error {
	return nil
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func closedPending(id, workerID string) session.Session {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ended := started.Add(8 * time.Hour)
	minutes := 480
	return session.Session{
		ID:              id,
		WorkerID:        workerID,
		OrganizationID:  "org1",
		StartedAt:       started,
		EndedAt:         &ended,
		KindTag:         session.KindWork,
		DurationMinutes: &minutes,
		ApprovalStatus:  session.ApprovalPending,
	}
}

func TestApproveOnceSucceeds(t *testing.T) {
	repo := newFakeApprovalRepo(closedPending("s1", "w1"))
	notifier := &countingNotifier{}
	svc := NewApprovalService(repo, notifier, nil)

	result, err := svc.Approve(context.Background(), approval.ApproveRequest{
		SessionID:      "s1",
		ManagerID:      "m1",
		OrganizationID: "org1",
	})
	require.NoError(t, err)
	assert.Equal(t, session.ApprovalApproved, result.Session.ApprovalStatus)
	require.NotNil(t, result.Session.ApprovedBy)
	assert.Equal(t, "m1", *result.Session.ApprovedBy)
	assert.Nil(t, result.NotifyWarning)
	assert.Equal(t, 1, notifier.count())
}

func TestApproveTwiceSendsOneNotification(t *testing.T) {
	repo := newFakeApprovalRepo(closedPending("s1", "w1"))
	notifier := &countingNotifier{}
	svc := NewApprovalService(repo, notifier, nil)
	ctx := context.Background()

	_, err := svc.Approve(ctx, approval.ApproveRequest{SessionID: "s1", ManagerID: "m1", OrganizationID: "org1"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, approval.ApproveRequest{SessionID: "s1", ManagerID: "m1", OrganizationID: "org1"})
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
	assert.Equal(t, 1, notifier.count())
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newFakeApprovalRepo(closedPending("s1", "w1"))
	svc := NewApprovalService(repo, nil, nil)

	_, err := svc.Reject(context.Background(), approval.RejectRequest{
		SessionID:      "s1",
		ManagerID:      "m1",
		OrganizationID: "org1",
	})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestRejectRecordsReason(t *testing.T) {
	repo := newFakeApprovalRepo(closedPending("s1", "w1"))
	notifier := &countingNotifier{}
	svc := NewApprovalService(repo, notifier, nil)

	result, err := svc.Reject(context.Background(), approval.RejectRequest{
		SessionID:      "s1",
		ManagerID:      "m1",
		OrganizationID: "org1",
		Reason:         "Hours do not match the schedule",
	})
	require.NoError(t, err)
	assert.Equal(t, session.ApprovalRejected, result.Session.ApprovalStatus)
	require.NotNil(t, result.Session.RejectionReason)
	assert.Equal(t, "Hours do not match the schedule", *result.Session.RejectionReason)
}

func TestDecideOpenSessionFails(t *testing.T) {
	open := closedPending("s1", "w1")
	open.EndedAt = nil
	open.DurationMinutes = nil
	repo := newFakeApprovalRepo(open)
	svc := NewApprovalService(repo, nil, nil)

	_, err := svc.Approve(context.Background(), approval.ApproveRequest{SessionID: "s1", ManagerID: "m1", OrganizationID: "org1"})
	assert.ErrorIs(t, err, approval.ErrSessionStillOpen)
}

func TestNotifyFailureIsWarningNotError(t *testing.T) {
	repo := newFakeApprovalRepo(closedPending("s1", "w1"))
	notifier := &countingNotifier{fail: true}
	svc := NewApprovalService(repo, notifier, nil)

	result, err := svc.Approve(context.Background(), approval.ApproveRequest{SessionID: "s1", ManagerID: "m1", OrganizationID: "org1"})
	require.NoError(t, err)
	// The decision stands even though delivery failed.
	assert.Equal(t, session.ApprovalApproved, result.Session.ApprovalStatus)
	require.NotNil(t, result.NotifyWarning)
}

func TestBulkApprovePartialFailure(t *testing.T) {
	decided := closedPending("s3", "w3")
	decided.ApprovalStatus = session.ApprovalApproved
	repo := newFakeApprovalRepo(
		closedPending("s1", "w1"),
		closedPending("s2", "w2"),
		decided,
		closedPending("s4", "w4"),
		closedPending("s5", "w5"),
	)
	notifier := &countingNotifier{}
	svc := NewApprovalService(repo, notifier, nil)

	result, err := svc.BulkApprove(context.Background(), approval.BulkApproveRequest{
		SessionIDs:     []string{"s1", "s2", "s3", "s4", "s5"},
		ManagerID:      "m1",
		OrganizationID: "org1",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Contains(t, result.Failures, "s3")
	assert.Equal(t, 4, notifier.count())
}

func TestBulkApproveEmptyList(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := NewApprovalService(repo, nil, nil)

	_, err := svc.BulkApprove(context.Background(), approval.BulkApproveRequest{
		ManagerID:      "m1",
		OrganizationID: "org1",
	})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestListPending(t *testing.T) {
	repo := newFakeApprovalRepo(
		closedPending("s1", "w1"),
		closedPending("s2", "w2"),
	)
	svc := NewApprovalService(repo, nil, nil)

	result, err := svc.ListPending(context.Background(), "org1", approval.PendingFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)
	assert.Len(t, result.Sessions, 2)
}
