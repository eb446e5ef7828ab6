package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
)

// SessionJobs hosts the periodic maintenance of the attendance engine.
type SessionJobs struct {
	sessionSvc session.Service
}

func NewSessionJobs(sessionSvc session.Service) *SessionJobs {
	return &SessionJobs{sessionSvc: sessionSvc}
}

func (j *SessionJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("reap_stale_sessions", 1*time.Hour, j.ReapStaleSessions)
}

// ReapStaleSessions force-closes sessions left open past the safety window.
// Zero stale sessions is the common case and a no-op.
func (j *SessionJobs) ReapStaleSessions(ctx context.Context) error {
	closed, err := j.sessionSvc.ReapStale(ctx)
	if err != nil {
		return err
	}
	if closed > 0 {
		slog.Info("Cron: Closed stale sessions", "count", closed)
	}
	return nil
}
