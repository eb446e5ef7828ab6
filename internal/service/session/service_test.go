package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

// fakeRepo is an in-memory session.Repository enforcing the same one-open
// invariant the partial unique index enforces in the real store.
type fakeRepo struct {
	mu         sync.Mutex
	sessions   map[string]*session.Session
	seq        int
	failCreate bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*session.Session)}
}

func (f *fakeRepo) Create(ctx context.Context, s session.Session) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate {
		return session.Session{}, errors.New("store unavailable")
	}
	for _, existing := range f.sessions {
		if existing.WorkerID == s.WorkerID && existing.EndedAt == nil {
			return session.Session{}, session.ErrAlreadyActive
		}
	}

	f.seq++
	s.ID = fmt.Sprintf("sess-%d", f.seq)
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	stored := s
	f.sessions[s.ID] = &stored
	return s, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string, organizationID string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.OrganizationID == organizationID {
		return *s, nil
	}
	return session.Session{}, session.ErrSessionNotFound
}

func (f *fakeRepo) GetOpenSession(ctx context.Context, workerID string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.WorkerID == workerID && s.EndedAt == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Close(ctx context.Context, id string, endedAt time.Time, durationMinutes int, notes *string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.EndedAt != nil {
		return session.Session{}, session.ErrNoActiveSession
	}
	s.EndedAt = &endedAt
	s.DurationMinutes = &durationMinutes
	s.ApprovalStatus = session.ApprovalPending
	if notes != nil {
		s.Notes = notes
	}
	return *s, nil
}

func (f *fakeRepo) ForceClose(ctx context.Context, id string, endedAt time.Time, durationMinutes int, annotation string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.EndedAt != nil {
		return session.Session{}, session.ErrNoActiveSession
	}
	s.EndedAt = &endedAt
	s.DurationMinutes = &durationMinutes
	s.ApprovalStatus = session.ApprovalPending
	s.AutoClosed = true
	s.Notes = &annotation
	return *s, nil
}

func (f *fakeRepo) ListStaleOpen(ctx context.Context, openedBefore time.Time) ([]session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []session.Session
	for _, s := range f.sessions {
		if s.EndedAt == nil && s.StartedAt.Before(openedBefore) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListClosedByWorkerAndRange(ctx context.Context, workerID string, from, to time.Time) ([]session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []session.Session
	for _, s := range f.sessions {
		if s.WorkerID == workerID && s.EndedAt != nil && !s.StartedAt.Before(from) && s.StartedAt.Before(to) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListMySessions(ctx context.Context, workerID string, filter session.MySessionsFilter) ([]session.Session, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []session.Session
	for _, s := range f.sessions {
		if s.WorkerID == workerID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) ListTeamByDate(ctx context.Context, organizationID string, filter session.TeamSessionsFilter) ([]session.Session, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []session.Session
	for _, s := range f.sessions {
		if s.OrganizationID == organizationID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

// fakeNotifier records DispatchDecision calls keyed the same way the ledger
// keys them, reporting duplicates as already dispatched.
type fakeNotifier struct {
	mu   sync.Mutex
	sent map[string]int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[string]int)}
}

func (f *fakeNotifier) DispatchDecision(ctx context.Context, req notification.DecisionDispatch) (notification.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := notification.DispatchKey(req.SessionID, req.Transition, req.Decision)
	f.sent[key]++
	if f.sent[key] > 1 {
		return notification.DispatchResult{Key: key, Deduplicated: true}, nil
	}
	return notification.DispatchResult{Key: key, DeliveryID: "dlv-" + key[:8]}, nil
}

func (f *fakeNotifier) GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	return &notification.NotificationListResponse{}, nil
}

func (f *fakeNotifier) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (f *fakeNotifier) MarkAsRead(ctx context.Context, userID string, req notification.MarkAsReadRequest) error {
	return nil
}

func (f *fakeNotifier) MarkAllAsRead(ctx context.Context, userID string) error {
	return nil
}

func (f *fakeNotifier) dispatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.sent {
		total += n
	}
	return total
}

// fakeClock steps time forward on demand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(repo *fakeRepo, clock *fakeClock) *SessionServiceImpl {
	return NewSessionService(repo, nil, nil, Config{
		StaleSessionWindow: 14 * time.Hour,
		Clock:              clock.Now,
	})
}

func TestClockInThenClockOutRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	created, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, session.KindWork, created.KindTag)
	assert.Nil(t, created.EndedAt)

	clock.Advance(90 * time.Minute)

	closed, err := svc.ClockOut(ctx, session.ClockOutRequest{WorkerID: "w1"})
	require.NoError(t, err)
	require.NotNil(t, closed.DurationMinutes)
	assert.Equal(t, 90, *closed.DurationMinutes)
	assert.Equal(t, session.ApprovalPending, closed.ApprovalStatus)

	state, err := svc.CurrentState(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, state.IsActive)
}

func TestClockInTwiceFails(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	_, err = svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	assert.ErrorIs(t, err, session.ErrAlreadyActive)
}

func TestConcurrentClockInOneWinner(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			// Losers fail with the duplicate guard or the per-worker
			// in-flight guard, never anything else.
			isExpected := errors.Is(err, session.ErrAlreadyActive) || errors.Is(err, session.ErrOperationInProgress)
			assert.True(t, isExpected, "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	open, err := repo.GetOpenSession(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, open)
}

func TestClockOutWithoutSession(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)

	_, err := svc.ClockOut(context.Background(), session.ClockOutRequest{WorkerID: "w1"})
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
}

func TestLunchBreakScenario(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	// 09:00 clock in, 12:00 lunch, 12:30 back, 17:00 out.
	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	breakSess, err := svc.StartBreak(ctx, session.StartBreakRequest{WorkerID: "w1", BreakType: "Lunch"})
	require.NoError(t, err)
	assert.Equal(t, "Lunch", breakSess.KindTag)
	assert.True(t, breakSess.IsBreak)

	clock.Advance(30 * time.Minute)
	resumed, err := svc.EndBreak(ctx, session.EndBreakRequest{WorkerID: "w1"})
	require.NoError(t, err)
	assert.Equal(t, session.KindWorkResumed, resumed.KindTag)
	assert.False(t, resumed.IsBreak)

	clock.Advance(4*time.Hour + 30*time.Minute)
	_, err = svc.ClockOut(ctx, session.ClockOutRequest{WorkerID: "w1"})
	require.NoError(t, err)

	// Three closed intervals: 180 min work, 30 min lunch, 270 min work.
	sessions, err := repo.ListClosedByWorkerAndRange(ctx, "w1",
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	totalWork, totalBreak := 0, 0
	for _, s := range sessions {
		require.NotNil(t, s.DurationMinutes)
		if s.IsBreak() {
			totalBreak += *s.DurationMinutes
		} else {
			totalWork += *s.DurationMinutes
		}
	}
	assert.Equal(t, 450, totalWork)
	assert.Equal(t, 30, totalBreak)
}

func TestStartBreakWhileOnBreak(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)
	_, err = svc.StartBreak(ctx, session.StartBreakRequest{WorkerID: "w1", BreakType: "Coffee"})
	require.NoError(t, err)

	_, err = svc.StartBreak(ctx, session.StartBreakRequest{WorkerID: "w1", BreakType: "Coffee"})
	assert.ErrorIs(t, err, session.ErrAlreadyActive)
}

func TestEndBreakWhileWorking(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	_, err = svc.EndBreak(ctx, session.EndBreakRequest{WorkerID: "w1"})
	assert.ErrorIs(t, err, session.ErrAlreadyActive)
}

func TestStartBreakRejectsWorkKindTag(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)

	_, err := svc.StartBreak(context.Background(), session.StartBreakRequest{WorkerID: "w1", BreakType: session.KindWork})
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNoActiveSession)
}

func TestBreakOpenHalfFailureLeavesOffDuty(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	repo.mu.Lock()
	repo.failCreate = true
	repo.mu.Unlock()

	_, err = svc.StartBreak(ctx, session.StartBreakRequest{WorkerID: "w1", BreakType: "Lunch"})
	assert.ErrorIs(t, err, session.ErrTransitionIncomplete)

	// The close half stands: the worker is detectably off duty, not stuck
	// with a phantom open session.
	state, err := svc.CurrentState(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, state.IsActive)
}

func TestReapStaleClosesOldSessions(t *testing.T) {
	repo := newFakeRepo()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	notifier := newFakeNotifier()
	svc := NewSessionService(repo, nil, notifier, Config{
		StaleSessionWindow: 14 * time.Hour,
		Clock:              clock.Now,
	})
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	// Just short of the window: nothing to reap.
	clock.Advance(13 * time.Hour)
	closed, err := svc.ReapStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)

	clock.Advance(2 * time.Hour)
	closed, err = svc.ReapStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	sessions, _, err := repo.ListMySessions(ctx, "w1", session.MySessionsFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	reaped := sessions[0]
	assert.True(t, reaped.AutoClosed)
	require.NotNil(t, reaped.EndedAt)
	// The session ends where the window ran out, not at reap time.
	assert.Equal(t, start.Add(14*time.Hour), reaped.EndedAt.UTC())
	require.NotNil(t, reaped.DurationMinutes)
	assert.Equal(t, 14*60, *reaped.DurationMinutes)
	assert.Equal(t, 1, notifier.dispatchCount())

	// A second pass finds nothing and sends nothing.
	closed, err = svc.ReapStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
	assert.Equal(t, 1, notifier.dispatchCount())
}

func TestClockInSweepsStaleSessionFirst(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	// Forgotten clock-out from yesterday must not block today's clock-in.
	clock.Advance(20 * time.Hour)
	created, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)
	assert.Nil(t, created.EndedAt)

	sessions, _, err := repo.ListMySessions(ctx, "w1", session.MySessionsFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestGetSessionScoping(t *testing.T) {
	repo := newFakeRepo()
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	svc := newTestService(repo, clock)
	ctx := context.Background()

	created, err := svc.ClockIn(ctx, session.ClockInRequest{WorkerID: "w1", OrganizationID: "org1"})
	require.NoError(t, err)

	// The owner reads their own session.
	got, err := svc.GetSession(ctx, created.ID, "org1", "w1", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Another worker in the same organization is refused.
	_, err = svc.GetSession(ctx, created.ID, "org1", "w2", false)
	assert.ErrorIs(t, err, session.ErrUnauthorized)

	// A manager in the organization may read any session.
	got, err = svc.GetSession(ctx, created.ID, "org1", "m1", true)
	require.NoError(t, err)
	assert.Equal(t, "w1", got.WorkerID)

	// Organization isolation holds even for managers.
	_, err = svc.GetSession(ctx, created.ID, "org2", "m2", true)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = svc.GetSession(ctx, "missing", "org1", "w1", false)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
