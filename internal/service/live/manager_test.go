package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

// fakeStream is a controllable push channel. While failing is set, Subscribe
// errors; otherwise it hands out the shared events channel.
type fakeStream struct {
	mu       sync.Mutex
	failing  bool
	attempts int
	events   chan session.Event
}

func newFakeStream(failing bool) *fakeStream {
	return &fakeStream{
		failing: failing,
		events:  make(chan session.Event, 4),
	}
}

func (f *fakeStream) Subscribe(workerID string) (<-chan session.Event, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failing {
		return nil, nil, errors.New("stream unavailable")
	}
	return f.events, func() {}, nil
}

func (f *fakeStream) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *fakeStream) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// fakeSessionRepo only serves GetOpenSession; the embedded interface panics
// on anything else, which is what we want in these tests.
type fakeSessionRepo struct {
	session.Repository

	mu    sync.Mutex
	open  *session.Session
	err   error
	reads int
}

func (f *fakeSessionRepo) GetOpenSession(ctx context.Context, workerID string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	if f.open == nil {
		return nil, nil
	}
	cp := *f.open
	return &cp, nil
}

func (f *fakeSessionRepo) set(open *session.Session, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = open
	f.err = err
}

func (f *fakeSessionRepo) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached: %s", msg)
}

func fastConfig() Config {
	return Config{
		PollInterval: time.Hour,
		RetryDelayFn: func(int) time.Duration { return time.Millisecond },
	}
}

func TestManagerStopsRetryingAfterFailureBudget(t *testing.T) {
	stream := newFakeStream(true)
	repo := &fakeSessionRepo{}
	m := NewManager("w1", stream, repo, nil, fastConfig())

	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return m.Status() == StatusDisconnected }, "manager disconnected")
	assert.Equal(t, MaxConsecutiveFailures, stream.attemptCount())

	// Parked: no further attempts without an explicit reconnect.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, MaxConsecutiveFailures, stream.attemptCount())
}

func TestReconnectRevivesDisconnectedManager(t *testing.T) {
	stream := newFakeStream(true)
	repo := &fakeSessionRepo{}
	m := NewManager("w1", stream, repo, nil, fastConfig())

	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return m.Status() == StatusDisconnected }, "manager disconnected")

	stream.setFailing(false)
	m.Reconnect()

	waitFor(t, func() bool { return m.Status() == StatusSubscribed }, "manager resubscribed")
	// The resubscribe triggered a reconciliation read.
	assert.GreaterOrEqual(t, repo.readCount(), 1)
}

func TestEventTriggersReconciliation(t *testing.T) {
	stream := newFakeStream(false)
	repo := &fakeSessionRepo{}
	m := NewManager("w1", stream, repo, nil, fastConfig())

	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return m.Status() == StatusSubscribed }, "manager subscribed")
	readsAfterSubscribe := repo.readCount()

	stream.events <- session.Event{Type: session.EventUpdated}

	waitFor(t, func() bool { return repo.readCount() > readsAfterSubscribe }, "event caused a fresh read")
}

func TestReconcileRebuildsWorkState(t *testing.T) {
	repo := &fakeSessionRepo{}
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo.set(&session.Session{
		ID:        "s1",
		WorkerID:  "w1",
		StartedAt: started,
		KindTag:   session.KindWork,
	}, nil)

	m := NewManager("w1", newFakeStream(true), repo, nil, fastConfig())
	m.Reconcile(context.Background())

	st := m.State()
	assert.True(t, st.IsActive)
	assert.Equal(t, "s1", st.CurrentSessionID)
	assert.False(t, st.IsOnBreak)
	require.NotNil(t, st.ClockInTime)
	assert.Equal(t, started, *st.ClockInTime)

	// The open session is gone: the whole view resets.
	repo.set(nil, nil)
	m.Reconcile(context.Background())
	assert.False(t, m.State().IsActive)
	assert.Empty(t, m.State().CurrentSessionID)
}

func TestReconcileRebuildsBreakState(t *testing.T) {
	repo := &fakeSessionRepo{}
	started := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.set(&session.Session{
		ID:        "s2",
		WorkerID:  "w1",
		StartedAt: started,
		KindTag:   "lunch",
	}, nil)

	m := NewManager("w1", newFakeStream(true), repo, nil, fastConfig())
	m.Reconcile(context.Background())

	st := m.State()
	assert.True(t, st.IsActive)
	assert.True(t, st.IsOnBreak)
	assert.Equal(t, "lunch", st.BreakType)
	require.NotNil(t, st.BreakStartTime)
	assert.Nil(t, st.ClockInTime)
}

func TestReconcileReadFailureSetsDegraded(t *testing.T) {
	repo := &fakeSessionRepo{}
	repo.set(nil, errors.New("connection refused"))

	m := NewManager("w1", newFakeStream(true), repo, nil, fastConfig())
	m.Reconcile(context.Background())
	assert.True(t, m.SyncDegraded())

	repo.set(nil, nil)
	m.Reconcile(context.Background())
	assert.False(t, m.SyncDegraded())
}

func TestSnapshotDerivesElapsed(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
	started := now.Add(-90 * time.Minute)

	repo := &fakeSessionRepo{}
	repo.set(&session.Session{
		ID:        "s1",
		WorkerID:  "w1",
		StartedAt: started,
		KindTag:   session.KindWork,
	}, nil)

	cfg := fastConfig()
	cfg.Clock = func() time.Time { return now }
	m := NewManager("w1", newFakeStream(true), repo, nil, cfg)
	m.Reconcile(context.Background())

	snap := m.Snapshot()
	assert.Equal(t, 90*60, snap.WorkElapsedSeconds)
	assert.Equal(t, "01:30:00", snap.WorkElapsed)
	assert.Equal(t, 0, snap.BreakElapsedSeconds)
}
