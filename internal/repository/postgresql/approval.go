package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/approval"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/database"
)

type approvalRepository struct {
	db *database.DB
}

func NewApprovalRepository(db *database.DB) approval.Repository {
	return &approvalRepository{db: db}
}

// Decide implements approval.Repository. The UPDATE is guarded so only a
// closed, still-pending row transitions; exactly one request wins a race and
// every other one falls through to the diagnostic read below.
func (r *approvalRepository) Decide(ctx context.Context, d approval.Decision) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE sessions s
		SET approval_status = $3,
			approved_by = $4,
			approved_at = $5,
			approval_notes = $6,
			rejection_reason = $7,
			updated_at = $5
		WHERE s.id = $1
		  AND s.organization_id = $2
		  AND s.ended_at IS NOT NULL
		  AND s.approval_status = $8
		RETURNING ` + sessionColumns

	s, err := scanSession(q.QueryRow(ctx, query,
		d.SessionID,
		d.OrganizationID,
		d.Status,
		d.ManagerID,
		d.DecidedAt,
		d.Notes,
		d.Reason,
		session.ApprovalPending,
	))
	if err == nil {
		return s, nil
	}
	if err != pgx.ErrNoRows {
		return session.Session{}, fmt.Errorf("failed to decide session: %w", err)
	}

	// No row transitioned; read the current state to say why.
	existing, getErr := r.getForDiagnosis(ctx, d.SessionID, d.OrganizationID)
	if getErr != nil {
		return session.Session{}, getErr
	}
	if existing.IsOpen() {
		return session.Session{}, approval.ErrSessionStillOpen
	}
	return existing, approval.ErrAlreadyDecided
}

func (r *approvalRepository) getForDiagnosis(ctx context.Context, id, organizationID string) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions s
		WHERE s.id = $1 AND s.organization_id = $2
	`

	s, err := scanSession(q.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return session.Session{}, session.ErrSessionNotFound
		}
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListPending implements approval.Repository.
func (r *approvalRepository) ListPending(ctx context.Context, organizationID string, filter approval.PendingFilter) ([]session.Session, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "s.organization_id = $1 AND s.ended_at IS NOT NULL AND s.approval_status = $2"
	args := []interface{}{organizationID, session.ApprovalPending}
	argIdx := 3

	if filter.TeamID != nil && *filter.TeamID != "" {
		baseWhere += fmt.Sprintf(" AND s.team_id = $%d", argIdx)
		args = append(args, *filter.TeamID)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM sessions s WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending sessions: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s, w.full_name AS worker_name
		FROM sessions s
		LEFT JOIN workers w ON w.id = s.worker_id
		WHERE %s
		ORDER BY s.ended_at ASC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, baseWhere, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query pending sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		var s session.Session
		err := rows.Scan(
			&s.ID, &s.WorkerID, &s.OrganizationID, &s.StartedAt, &s.EndedAt, &s.KindTag,
			&s.DurationMinutes, &s.ApprovalStatus, &s.ApprovedBy, &s.ApprovedAt,
			&s.ApprovalNotes, &s.RejectionReason, &s.Notes, &s.TeamID, &s.ShiftLabel,
			&s.AutoClosed, &s.CreatedAt, &s.UpdatedAt,
			&s.WorkerName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pending session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, total, nil
}
