package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/handler/http/response"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/jwt"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// SessionHandler exposes the attendance state machine over HTTP
type SessionHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	CurrentState(w http.ResponseWriter, r *http.Request)
	GetByID(w http.ResponseWriter, r *http.Request)
	MySessions(w http.ResponseWriter, r *http.Request)
	TeamSessions(w http.ResponseWriter, r *http.Request)
}

type sessionHandlerImpl struct {
	sessionService session.Service
}

func NewSessionHandler(sessionService session.Service) SessionHandler {
	return &sessionHandlerImpl{sessionService: sessionService}
}

// getWorkerIDFromContext extracts worker_id from JWT context
func getWorkerIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if workerID, ok := claims["worker_id"].(string); ok {
		return workerID
	}
	return ""
}

// getOrganizationIDFromContext extracts organization_id from JWT context
func getOrganizationIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if orgID, ok := claims["organization_id"].(string); ok {
		return orgID
	}
	return ""
}

// getRoleFromContext extracts the principal's role from JWT context
func getRoleFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if role, ok := claims["role"].(string); ok {
		return role
	}
	return ""
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getBoolQueryParam gets a bool query parameter with a default value
func getBoolQueryParam(r *http.Request, key string, defaultVal bool) bool {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// ClockIn opens a new work session for the authenticated worker
func (h *sessionHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	organizationID := getOrganizationIDFromContext(r)
	if workerID == "" || organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req session.ClockInRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.WorkerID = workerID
	req.OrganizationID = organizationID

	result, err := h.sessionService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clocked in", result)
}

// ClockOut closes the worker's current session
func (h *sessionHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req session.ClockOutRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.WorkerID = workerID

	result, err := h.sessionService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out", result)
}

// StartBreak moves the worker from working to on-break
func (h *sessionHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req session.StartBreakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.WorkerID = workerID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", result)
}

// EndBreak moves the worker from on-break back to working
func (h *sessionHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	req := session.EndBreakRequest{WorkerID: workerID}

	result, err := h.sessionService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", result)
}

// CurrentState returns the worker's durable attendance state
func (h *sessionHandlerImpl) CurrentState(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	result, err := h.sessionService.CurrentState(r.Context(), workerID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetByID returns a single session. Workers see their own sessions only;
// managers see any session in their organization.
func (h *sessionHandlerImpl) GetByID(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	organizationID := getOrganizationIDFromContext(r)
	if workerID == "" || organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.ValidationError(w, map[string]string{"id": "must be a valid UUID"})
		return
	}

	isManager := getRoleFromContext(r) == string(jwt.RoleManager)

	result, err := h.sessionService.GetSession(r.Context(), id, organizationID, workerID, isManager)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// MySessions returns the worker's session history
func (h *sessionHandlerImpl) MySessions(w http.ResponseWriter, r *http.Request) {
	workerID := getWorkerIDFromContext(r)
	if workerID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := session.MySessionsFilter{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
		Page:      getIntQueryParam(r, "page", 1),
		Limit:     getIntQueryParam(r, "limit", 20),
	}

	result, err := h.sessionService.GetMySessions(r.Context(), workerID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Sessions,
		response.PageMeta(result.Page, result.Limit, result.TotalPages, result.TotalCount))
}

// TeamSessions returns the organization's sessions for one date. Managers
// only; the route carries the role middleware.
func (h *sessionHandlerImpl) TeamSessions(w http.ResponseWriter, r *http.Request) {
	organizationID := getOrganizationIDFromContext(r)
	if organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := session.TeamSessionsFilter{
		Date:  r.URL.Query().Get("date"),
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		filter.TeamID = &teamID
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.sessionService.ListTeamSessions(r.Context(), organizationID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Sessions,
		response.PageMeta(result.Page, result.Limit, result.TotalPages, result.TotalCount))
}
