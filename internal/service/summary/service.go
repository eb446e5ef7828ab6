package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/summary"
)

type SummaryServiceImpl struct {
	sessionRepo           session.Repository
	dailyThresholdMinutes int
}

// NewSummaryService builds the on-demand aggregator. dailyThresholdMinutes
// is the worked-minutes bar beyond which overtime accrues (480 = 8h).
func NewSummaryService(sessionRepo session.Repository, dailyThresholdMinutes int) summary.Service {
	if dailyThresholdMinutes <= 0 {
		dailyThresholdMinutes = 480
	}
	return &SummaryServiceImpl{
		sessionRepo:           sessionRepo,
		dailyThresholdMinutes: dailyThresholdMinutes,
	}
}

// ComputeDaily implements summary.Service. Full recomputation from closed
// sessions; nothing is cached or patched incrementally, so repeated calls
// can never drift from the durable record.
func (s *SummaryServiceImpl) ComputeDaily(ctx context.Context, workerID string, date time.Time) (summary.DailySummary, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	sessions, err := s.sessionRepo.ListClosedByWorkerAndRange(ctx, workerID, dayStart, dayEnd)
	if err != nil {
		return summary.DailySummary{}, fmt.Errorf("failed to list sessions for summary: %w", err)
	}

	result := summary.DailySummary{
		WorkerID: workerID,
		Date:     dayStart.Format("2006-01-02"),
	}

	for _, sess := range sessions {
		if sess.DurationMinutes == nil {
			continue
		}
		if sess.IsBreak() {
			result.TotalBreakMinutes += *sess.DurationMinutes
			result.BreakCount++
		} else {
			result.TotalWorkMinutes += *sess.DurationMinutes
			result.SessionCount++
		}
	}

	if result.TotalWorkMinutes > s.dailyThresholdMinutes {
		result.OvertimeMinutes = result.TotalWorkMinutes - s.dailyThresholdMinutes
	}

	return result, nil
}

// ComputeWeekly implements summary.Service.
func (s *SummaryServiceImpl) ComputeWeekly(ctx context.Context, workerID string, weekStart time.Time) (summary.WeeklySummary, error) {
	start := time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, time.UTC)

	result := summary.WeeklySummary{
		WorkerID:  workerID,
		WeekStart: start.Format("2006-01-02"),
		Days:      make([]summary.DailySummary, 0, 7),
	}

	for i := 0; i < 7; i++ {
		day, err := s.ComputeDaily(ctx, workerID, start.AddDate(0, 0, i))
		if err != nil {
			return summary.WeeklySummary{}, err
		}
		result.Days = append(result.Days, day)
		result.TotalWorkMinutes += day.TotalWorkMinutes
		result.TotalBreakMinutes += day.TotalBreakMinutes
		result.OvertimeMinutes += day.OvertimeMinutes
	}

	return result, nil
}
