package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/approval"
	"github.com/worktrackhq/worktrack-backend-go/internal/handler/http/response"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/validator"
)

// ApprovalHandler exposes the manager review workflow
type ApprovalHandler interface {
	ListPending(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	BulkApprove(w http.ResponseWriter, r *http.Request)
}

type approvalHandlerImpl struct {
	approvalService approval.Service
}

func NewApprovalHandler(approvalService approval.Service) ApprovalHandler {
	return &approvalHandlerImpl{approvalService: approvalService}
}

// ListPending returns closed sessions awaiting review
func (h *approvalHandlerImpl) ListPending(w http.ResponseWriter, r *http.Request) {
	organizationID := getOrganizationIDFromContext(r)
	if organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := approval.PendingFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if teamID := r.URL.Query().Get("team_id"); teamID != "" {
		filter.TeamID = &teamID
	}

	result, err := h.approvalService.ListPending(r.Context(), organizationID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Sessions,
		response.PageMeta(result.Page, result.Limit, result.TotalPages, result.TotalCount))
}

// Approve commits an approval for one session. Safe to retry; a duplicate
// click lands on the idempotency ledger, not on the worker's inbox.
func (h *approvalHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	managerID := getWorkerIDFromContext(r)
	organizationID := getOrganizationIDFromContext(r)
	if managerID == "" || organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if !validator.IsValidUUID(sessionID) {
		response.ValidationError(w, map[string]string{"id": "must be a valid UUID"})
		return
	}

	var req approval.ApproveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.SessionID = sessionID
	req.ManagerID = managerID
	req.OrganizationID = organizationID

	result, err := h.approvalService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Session approved", result)
}

// Reject commits a rejection with a mandatory reason
func (h *approvalHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	managerID := getWorkerIDFromContext(r)
	organizationID := getOrganizationIDFromContext(r)
	if managerID == "" || organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if !validator.IsValidUUID(sessionID) {
		response.ValidationError(w, map[string]string{"id": "must be a valid UUID"})
		return
	}

	var req approval.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.SessionID = sessionID
	req.ManagerID = managerID
	req.OrganizationID = organizationID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.approvalService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Session rejected", result)
}

// BulkApprove approves a batch of sessions, reporting per-id outcomes
func (h *approvalHandlerImpl) BulkApprove(w http.ResponseWriter, r *http.Request) {
	managerID := getWorkerIDFromContext(r)
	organizationID := getOrganizationIDFromContext(r)
	if managerID == "" || organizationID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req approval.BulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ManagerID = managerID
	req.OrganizationID = organizationID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.approvalService.BulkApprove(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Bulk approval processed", result)
}
