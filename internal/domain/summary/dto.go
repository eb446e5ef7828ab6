package summary

// DailySummary aggregates a worker's closed sessions for one calendar date.
// Always recomputed from the sessions, never incrementally patched.
type DailySummary struct {
	WorkerID          string `json:"worker_id"`
	Date              string `json:"date"`
	TotalWorkMinutes  int    `json:"total_work_minutes"`
	TotalBreakMinutes int    `json:"total_break_minutes"`
	SessionCount      int    `json:"session_count"`
	BreakCount        int    `json:"break_count"`
	OvertimeMinutes   int    `json:"overtime_minutes"`
}

// WeeklySummary is seven consecutive daily summaries plus their totals.
type WeeklySummary struct {
	WorkerID          string         `json:"worker_id"`
	WeekStart         string         `json:"week_start"`
	Days              []DailySummary `json:"days"`
	TotalWorkMinutes  int            `json:"total_work_minutes"`
	TotalBreakMinutes int            `json:"total_break_minutes"`
	OvertimeMinutes   int            `json:"overtime_minutes"`
}
