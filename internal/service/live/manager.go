package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/summary"
)

// Status of the push subscription.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusSubscribed   Status = "subscribed"
	StatusDisconnected Status = "disconnected"
)

// Config tunes one worker's sync manager.
type Config struct {
	// PollInterval drives the reconciliation safety net. Defaults to 10s.
	PollInterval time.Duration

	// RetryDelayFn overrides the reconnect schedule; defaults to RetryDelay.
	RetryDelayFn func(failure int) time.Duration

	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time
}

// Manager keeps one worker's LiveState in sync with the durable store. It
// holds a single push subscription, reconnects with exponential backoff, and
// falls back to polling while the channel is down. Push events are treated
// purely as reconciliation triggers: every one of them causes a fresh read,
// so out-of-order or duplicate events cannot corrupt the view.
type Manager struct {
	workerID    string
	stream      session.EventStream
	sessionRepo session.Repository
	summarySvc  summary.Service
	cfg         Config
	now         func() time.Time

	mu           sync.RWMutex
	status       Status
	failures     int
	state        LiveState
	todaySummary *summary.DailySummary
	syncDegraded bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	reconnect chan struct{}
	started   bool
}

// NewManager builds a sync manager for one worker. summarySvc may be nil if
// the caller does not need daily totals refreshed on reconciliation.
func NewManager(
	workerID string,
	stream session.EventStream,
	sessionRepo session.Repository,
	summarySvc summary.Service,
	cfg Config,
) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.RetryDelayFn == nil {
		cfg.RetryDelayFn = RetryDelay
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		workerID:    workerID,
		stream:      stream,
		sessionRepo: sessionRepo,
		summarySvc:  summarySvc,
		cfg:         cfg,
		now:         now,
		status:      StatusConnecting,
		ctx:         ctx,
		cancel:      cancel,
		reconnect:   make(chan struct{}, 1),
	}
}

// Start launches the subscription loop and the polling fallback.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.runSubscription()
	go m.runPolling()
}

// Stop tears the manager down, cancelling any pending retry timer.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Reconnect resets the failure budget and wakes a disconnected manager.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()

	select {
	case m.reconnect <- struct{}{}:
	default:
	}
}

// Status returns the current channel status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// SyncDegraded reports whether the last reconciliation read failed. Cleared
// by the next successful one.
func (m *Manager) SyncDegraded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncDegraded
}

// State returns a copy of the current live state.
func (m *Manager) State() LiveState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns the live state with elapsed counters for display.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	st := m.state
	m.mu.RUnlock()
	return snapshotAt(st, m.now())
}

// TodaySummary returns the last reconciled daily totals, or nil before the
// first successful reconciliation.
func (m *Manager) TodaySummary() *summary.DailySummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.todaySummary == nil {
		return nil
	}
	cp := *m.todaySummary
	return &cp
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Manager) runSubscription() {
	defer m.wg.Done()

	for {
		if m.ctx.Err() != nil {
			return
		}

		m.setStatus(StatusConnecting)

		events, cleanup, err := m.stream.Subscribe(m.workerID)
		if err != nil {
			if !m.backOff() {
				return
			}
			continue
		}

		m.setStatus(StatusSubscribed)
		m.mu.Lock()
		m.failures = 0
		m.mu.Unlock()

		// Fresh read on every (re)subscribe; events missed while the
		// channel was down are recovered here.
		m.Reconcile(m.ctx)

		m.consume(events)
		cleanup()

		if m.ctx.Err() != nil {
			return
		}
		if !m.backOff() {
			return
		}
	}
}

// consume drains the event channel until it closes or the manager stops.
func (m *Manager) consume(events <-chan session.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				// Channel closed by the stream.
				return
			}
			// The payload is deliberately ignored; events may arrive out of
			// order or stale. Reconciliation reads the authoritative row.
			m.Reconcile(m.ctx)
		case <-m.ctx.Done():
			return
		}
	}
}

// backOff sleeps before the next subscribe attempt, or parks the manager as
// disconnected once the failure budget is spent. Returns false only on
// shutdown.
func (m *Manager) backOff() bool {
	m.mu.Lock()
	m.failures++
	failures := m.failures
	m.mu.Unlock()

	if failures >= MaxConsecutiveFailures {
		slog.Warn("Push channel gave up after consecutive failures",
			"worker_id", m.workerID,
			"failures", failures)
		m.setStatus(StatusDisconnected)

		// No auto-retry from here; wait for an explicit reconnect.
		select {
		case <-m.reconnect:
			return true
		case <-m.ctx.Done():
			return false
		}
	}

	delay := m.cfg.RetryDelayFn(failures)
	slog.Debug("Push channel retry scheduled",
		"worker_id", m.workerID,
		"failure", failures,
		"delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-m.reconnect:
		return true
	case <-m.ctx.Done():
		return false
	}
}

func (m *Manager) runPolling() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.RLock()
			disconnected := m.status != StatusSubscribed
			active := m.state.IsActive
			m.mu.RUnlock()

			// The poll is a safety net: it only reads when the channel is
			// down or a session is running and a missed close event would
			// leave the timer ticking forever.
			if disconnected || active {
				m.Reconcile(m.ctx)
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// Reconcile rebuilds LiveState from the authoritative store. Never trusts
// event payloads, never mutates sessions.
func (m *Manager) Reconcile(ctx context.Context) {
	open, err := m.sessionRepo.GetOpenSession(ctx, m.workerID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Reconciliation read failed", "worker_id", m.workerID, "error", err)
		m.mu.Lock()
		m.syncDegraded = true
		m.mu.Unlock()
		return
	}

	st := stateFromOpen(open)

	var today *summary.DailySummary
	if m.summarySvc != nil {
		if day, sumErr := m.summarySvc.ComputeDaily(ctx, m.workerID, m.now().UTC()); sumErr == nil {
			today = &day
		} else {
			slog.Warn("Summary refresh failed", "worker_id", m.workerID, "error", sumErr)
		}
	}

	m.mu.Lock()
	m.state = st
	if today != nil {
		m.todaySummary = today
	}
	m.syncDegraded = false
	m.mu.Unlock()
}
