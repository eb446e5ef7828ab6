package summary

import (
	"context"
	"time"
)

// Service recomputes attendance aggregates on demand. Deterministic and
// side-effect free; safe to call repeatedly and concurrently.
type Service interface {
	// ComputeDaily scans the worker's closed sessions for the date and
	// returns the aggregate. Overtime is worked minutes beyond the
	// configured daily threshold.
	ComputeDaily(ctx context.Context, workerID string, date time.Time) (DailySummary, error)

	// ComputeWeekly aggregates the seven days starting at weekStart.
	ComputeWeekly(ctx context.Context, workerID string, weekStart time.Time) (WeeklySummary, error)
}
