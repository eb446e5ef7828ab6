package http

import (
	"net/http"

	"github.com/worktrackhq/worktrack-backend-go/internal/domain/summary"
	"github.com/worktrackhq/worktrack-backend-go/internal/handler/http/response"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// SummaryHandler exposes on-demand attendance aggregates
type SummaryHandler interface {
	Daily(w http.ResponseWriter, r *http.Request)
	Weekly(w http.ResponseWriter, r *http.Request)
}

type summaryHandlerImpl struct {
	summaryService summary.Service
}

func NewSummaryHandler(summaryService summary.Service) SummaryHandler {
	return &summaryHandlerImpl{summaryService: summaryService}
}

// Daily returns the worker's aggregate for one calendar date
func (h *summaryHandlerImpl) Daily(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		response.BadRequest(w, "date is required", nil)
		return
	}
	date, ok := validator.IsValidDate(dateStr)
	if !ok {
		response.BadRequest(w, "date must be in YYYY-MM-DD format", nil)
		return
	}

	result, err := h.summaryService.ComputeDaily(r.Context(), workerID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Weekly returns seven daily aggregates starting at week_start
func (h *summaryHandlerImpl) Weekly(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	weekStartStr := r.URL.Query().Get("week_start")
	if weekStartStr == "" {
		response.BadRequest(w, "week_start is required", nil)
		return
	}
	weekStart, ok := validator.IsValidDate(weekStartStr)
	if !ok {
		response.BadRequest(w, "week_start must be in YYYY-MM-DD format", nil)
		return
	}

	result, err := h.summaryService.ComputeWeekly(r.Context(), workerID, weekStart)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
