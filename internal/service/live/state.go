package live

import (
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/timer"
)

// LiveState is the worker's ephemeral attendance view. It is rebuilt whole
// from the latest open session on every reconciliation, never mutated field
// by field, so it can only diverge from the durable record for at most one
// reconciliation cycle.
type LiveState struct {
	IsActive         bool
	CurrentSessionID string
	ClockInTime      *time.Time
	IsOnBreak        bool
	BreakType        string
	BreakStartTime   *time.Time
}

// Snapshot is a LiveState plus the tick-derived elapsed counters. At most
// one of the two elapsed values is non-zero: a break closes the work
// session, so the two never run together.
type Snapshot struct {
	LiveState
	WorkElapsedSeconds  int
	BreakElapsedSeconds int
	WorkElapsed         string
	BreakElapsed        string
}

// stateFromOpen rebuilds the view from the authoritative open session, or
// returns the zero state when the worker is off the clock.
func stateFromOpen(open *session.Session) LiveState {
	if open == nil {
		return LiveState{}
	}

	st := LiveState{
		IsActive:         true,
		CurrentSessionID: open.ID,
	}

	startedAt := open.StartedAt
	if open.IsBreak() {
		st.IsOnBreak = true
		st.BreakType = open.KindTag
		st.BreakStartTime = &startedAt
	} else {
		st.ClockInTime = &startedAt
	}

	return st
}

// snapshotAt derives the display counters for one instant.
func snapshotAt(st LiveState, now time.Time) Snapshot {
	snap := Snapshot{LiveState: st}

	if st.ClockInTime != nil {
		snap.WorkElapsedSeconds = timer.ElapsedSeconds(*st.ClockInTime, now)
	}
	if st.BreakStartTime != nil {
		snap.BreakElapsedSeconds = timer.ElapsedSeconds(*st.BreakStartTime, now)
	}
	snap.WorkElapsed = timer.FormatElapsed(snap.WorkElapsedSeconds)
	snap.BreakElapsed = timer.FormatElapsed(snap.BreakElapsedSeconds)

	return snap
}
