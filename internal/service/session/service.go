package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/timer"
)

// Config tunes the state machine and the stale-session reaper.
type Config struct {
	// StaleSessionWindow is the maximum age of an open session before the
	// reaper force-closes it.
	StaleSessionWindow time.Duration

	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time
}

type SessionServiceImpl struct {
	repo      session.Repository
	publisher session.EventPublisher
	notifSvc  notification.Service
	cfg       Config
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSessionService builds the attendance state machine. publisher and
// notifSvc may be nil in contexts without a push channel or notifications.
func NewSessionService(
	repo session.Repository,
	publisher session.EventPublisher,
	notifSvc notification.Service,
	cfg Config,
) *SessionServiceImpl {
	if cfg.StaleSessionWindow <= 0 {
		cfg.StaleSessionWindow = 14 * time.Hour
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &SessionServiceImpl{
		repo:      repo,
		publisher: publisher,
		notifSvc:  notifSvc,
		cfg:       cfg,
		now:       now,
		inflight:  make(map[string]struct{}),
	}
}

var _ session.Service = (*SessionServiceImpl)(nil)

// beginOp reserves the per-worker mutation slot. A second mutating request
// for the same worker while one is in flight fails instead of queuing, so a
// rapid double submission cannot create duplicate sessions.
func (s *SessionServiceImpl) beginOp(workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[workerID]; busy {
		return session.ErrOperationInProgress
	}
	s.inflight[workerID] = struct{}{}
	return nil
}

func (s *SessionServiceImpl) endOp(workerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, workerID)
}

func (s *SessionServiceImpl) publish(workerID string, eventType session.EventType, sess session.Session) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(workerID, session.Event{Type: eventType, Session: sess})
}

// ClockIn implements session.Service.
func (s *SessionServiceImpl) ClockIn(ctx context.Context, req session.ClockInRequest) (session.SessionResponse, error) {
	if err := s.beginOp(req.WorkerID); err != nil {
		return session.SessionResponse{}, err
	}
	defer s.endOp(req.WorkerID)

	// Opportunistic sweep so a forgotten clock-out from yesterday does not
	// block today's clock-in.
	if _, err := s.reapStale(ctx); err != nil {
		slog.Warn("Stale session sweep before clock-in failed", "worker_id", req.WorkerID, "error", err)
	}

	// Re-check against the store, not local state; a second device may have
	// clocked in moments ago.
	open, err := s.repo.GetOpenSession(ctx, req.WorkerID)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("failed to check open session: %w", err)
	}
	if open != nil {
		return session.SessionResponse{}, session.ErrAlreadyActive
	}

	created, err := s.repo.Create(ctx, session.Session{
		WorkerID:       req.WorkerID,
		OrganizationID: req.OrganizationID,
		StartedAt:      s.now().UTC(),
		KindTag:        session.KindWork,
		ApprovalStatus: session.ApprovalPending,
		Notes:          req.Notes,
		TeamID:         req.TeamID,
		ShiftLabel:     req.ShiftLabel,
	})
	if err != nil {
		// The partial unique index is the authoritative guard; a race that
		// slipped past the read above lands here.
		if errors.Is(err, session.ErrAlreadyActive) {
			return session.SessionResponse{}, session.ErrAlreadyActive
		}
		return session.SessionResponse{}, fmt.Errorf("failed to create session: %w", err)
	}

	s.publish(req.WorkerID, session.EventCreated, created)

	return session.ToResponse(created), nil
}

// ClockOut implements session.Service.
func (s *SessionServiceImpl) ClockOut(ctx context.Context, req session.ClockOutRequest) (session.SessionResponse, error) {
	if err := s.beginOp(req.WorkerID); err != nil {
		return session.SessionResponse{}, err
	}
	defer s.endOp(req.WorkerID)

	open, err := s.repo.GetOpenSession(ctx, req.WorkerID)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("failed to check open session: %w", err)
	}
	if open == nil {
		return session.SessionResponse{}, session.ErrNoActiveSession
	}

	closed, err := s.closeSession(ctx, *open, req.Notes)
	if err != nil {
		return session.SessionResponse{}, err
	}

	return session.ToResponse(closed), nil
}

// closeSession closes an open session at the current instant and publishes
// the update.
func (s *SessionServiceImpl) closeSession(ctx context.Context, open session.Session, notes *string) (session.Session, error) {
	endedAt := s.now().UTC()
	duration := timer.ElapsedMinutes(open.StartedAt, endedAt)

	closed, err := s.repo.Close(ctx, open.ID, endedAt, duration, notes)
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			return session.Session{}, session.ErrNoActiveSession
		}
		return session.Session{}, fmt.Errorf("failed to close session: %w", err)
	}

	s.publish(closed.WorkerID, session.EventUpdated, closed)
	return closed, nil
}

// StartBreak implements session.Service. A break is modeled as closing the
// running work session and opening a new session tagged with the break
// category, so every session stays a simple closed interval.
func (s *SessionServiceImpl) StartBreak(ctx context.Context, req session.StartBreakRequest) (session.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return session.SessionResponse{}, err
	}
	if err := s.beginOp(req.WorkerID); err != nil {
		return session.SessionResponse{}, err
	}
	defer s.endOp(req.WorkerID)

	open, err := s.repo.GetOpenSession(ctx, req.WorkerID)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("failed to check open session: %w", err)
	}
	if open == nil {
		return session.SessionResponse{}, session.ErrNoActiveSession
	}
	if open.IsBreak() {
		// Retried start-break; the break session already exists.
		return session.SessionResponse{}, session.ErrAlreadyActive
	}

	closed, err := s.closeSession(ctx, *open, nil)
	if err != nil {
		return session.SessionResponse{}, err
	}

	opened, err := s.openFollowUp(ctx, closed, req.BreakType)
	if err != nil {
		return session.SessionResponse{}, err
	}

	return session.ToResponse(opened), nil
}

// EndBreak implements session.Service.
func (s *SessionServiceImpl) EndBreak(ctx context.Context, req session.EndBreakRequest) (session.SessionResponse, error) {
	if err := s.beginOp(req.WorkerID); err != nil {
		return session.SessionResponse{}, err
	}
	defer s.endOp(req.WorkerID)

	open, err := s.repo.GetOpenSession(ctx, req.WorkerID)
	if err != nil {
		return session.SessionResponse{}, fmt.Errorf("failed to check open session: %w", err)
	}
	if open == nil {
		return session.SessionResponse{}, session.ErrNoActiveSession
	}
	if !open.IsBreak() {
		// Retried end-break; work already resumed.
		return session.SessionResponse{}, session.ErrAlreadyActive
	}

	closed, err := s.closeSession(ctx, *open, nil)
	if err != nil {
		return session.SessionResponse{}, err
	}

	opened, err := s.openFollowUp(ctx, closed, session.KindWorkResumed)
	if err != nil {
		return session.SessionResponse{}, err
	}

	return session.ToResponse(opened), nil
}

// openFollowUp opens the second half of a close-then-open pair. When it
// fails the close stands: the worker is off duty in a detectable, recoverable
// state instead of a phantom open session, and the caller sees
// ErrTransitionIncomplete.
func (s *SessionServiceImpl) openFollowUp(ctx context.Context, closed session.Session, kindTag string) (session.Session, error) {
	opened, err := s.repo.Create(ctx, session.Session{
		WorkerID:       closed.WorkerID,
		OrganizationID: closed.OrganizationID,
		StartedAt:      s.now().UTC(),
		KindTag:        kindTag,
		ApprovalStatus: session.ApprovalPending,
		TeamID:         closed.TeamID,
		ShiftLabel:     closed.ShiftLabel,
	})
	if err != nil {
		slog.Error("Follow-up session could not be opened",
			"worker_id", closed.WorkerID,
			"closed_session_id", closed.ID,
			"kind_tag", kindTag,
			"error", err)
		return session.Session{}, fmt.Errorf("%w: %v", session.ErrTransitionIncomplete, err)
	}

	s.publish(opened.WorkerID, session.EventCreated, opened)
	return opened, nil
}

// CurrentState implements session.Service.
func (s *SessionServiceImpl) CurrentState(ctx context.Context, workerID string) (session.CurrentStateResponse, error) {
	open, err := s.repo.GetOpenSession(ctx, workerID)
	if err != nil {
		return session.CurrentStateResponse{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if open == nil {
		return session.CurrentStateResponse{}, nil
	}

	resp := session.ToResponse(*open)
	return session.CurrentStateResponse{
		IsActive:       true,
		IsOnBreak:      open.IsBreak(),
		CurrentSession: &resp,
	}, nil
}

// GetSession implements session.Service.
func (s *SessionServiceImpl) GetSession(ctx context.Context, id, organizationID, requesterID string, isManager bool) (session.SessionResponse, error) {
	sess, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return session.SessionResponse{}, session.ErrSessionNotFound
		}
		return session.SessionResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	if !isManager && sess.WorkerID != requesterID {
		return session.SessionResponse{}, session.ErrUnauthorized
	}

	return session.ToResponse(sess), nil
}

// GetMySessions implements session.Service.
func (s *SessionServiceImpl) GetMySessions(ctx context.Context, workerID string, filter session.MySessionsFilter) (session.ListSessionsResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	sessions, total, err := s.repo.ListMySessions(ctx, workerID, filter)
	if err != nil {
		return session.ListSessionsResponse{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	return buildListResponse(sessions, total, filter.Page, filter.Limit), nil
}

// ListTeamSessions implements session.Service.
func (s *SessionServiceImpl) ListTeamSessions(ctx context.Context, organizationID string, filter session.TeamSessionsFilter) (session.ListSessionsResponse, error) {
	if err := filter.Validate(); err != nil {
		return session.ListSessionsResponse{}, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	sessions, total, err := s.repo.ListTeamByDate(ctx, organizationID, filter)
	if err != nil {
		return session.ListSessionsResponse{}, fmt.Errorf("failed to list team sessions: %w", err)
	}

	return buildListResponse(sessions, total, filter.Page, filter.Limit), nil
}

func buildListResponse(sessions []session.Session, total int64, page, limit int) session.ListSessionsResponse {
	responses := make([]session.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		responses = append(responses, session.ToResponse(sess))
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return session.ListSessionsResponse{
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Sessions:   responses,
	}
}

// ReapStale implements session.Service.
func (s *SessionServiceImpl) ReapStale(ctx context.Context) (int, error) {
	return s.reapStale(ctx)
}

const reaperAnnotation = "Auto-closed: no clock-out recorded within the safety window. Please contact your manager if this is incorrect."

func (s *SessionServiceImpl) reapStale(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.StaleSessionWindow)

	stale, err := s.repo.ListStaleOpen(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	closedCount := 0
	for _, sess := range stale {
		// Cutoff policy: the session ends where the safety window ran out,
		// not at reap time, so the recorded duration is bounded.
		endedAt := sess.StartedAt.Add(s.cfg.StaleSessionWindow).UTC()
		duration := timer.ElapsedMinutes(sess.StartedAt, endedAt)

		closed, err := s.repo.ForceClose(ctx, sess.ID, endedAt, duration, reaperAnnotation)
		if err != nil {
			if errors.Is(err, session.ErrNoActiveSession) {
				// Someone else closed it in the meantime; nothing to do.
				continue
			}
			slog.Error("Failed to auto-close stale session",
				"session_id", sess.ID,
				"worker_id", sess.WorkerID,
				"error", err)
			continue
		}

		s.publish(closed.WorkerID, session.EventUpdated, closed)
		s.notifyAutoClose(ctx, closed)
		closedCount++
	}

	return closedCount, nil
}

// notifyAutoClose tells the session owner their session was force-closed.
// Best effort; the close itself already stands.
func (s *SessionServiceImpl) notifyAutoClose(ctx context.Context, closed session.Session) {
	if s.notifSvc == nil {
		return
	}

	_, err := s.notifSvc.DispatchDecision(ctx, notification.DecisionDispatch{
		OrganizationID: closed.OrganizationID,
		RecipientID:    closed.WorkerID,
		SessionID:      closed.ID,
		Transition:     "auto_close",
		Decision:       session.ApprovalPending,
		Type:           notification.TypeSessionAutoClosed,
		Title:          "Session Auto-Closed",
		Message:        fmt.Sprintf("Your session started %s was automatically closed", closed.StartedAt.Format("2006-01-02 15:04")),
		Data: map[string]interface{}{
			"session_id": closed.ID,
			"started_at": closed.StartedAt.Format("2006-01-02 15:04:05"),
			"reason":     reaperAnnotation,
		},
	})
	if err != nil && !errors.Is(err, notification.ErrAlreadyDispatched) {
		slog.Warn("Auto-close notification not delivered",
			"session_id", closed.ID,
			"worker_id", closed.WorkerID,
			"error", err)
	}
}
