package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/session"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/database"
)

const sessionColumns = `
	s.id, s.worker_id, s.organization_id, s.started_at, s.ended_at, s.kind_tag,
	s.duration_minutes, s.approval_status, s.approved_by, s.approved_at,
	s.approval_notes, s.rejection_reason, s.notes, s.team_id, s.shift_label,
	s.auto_closed, s.created_at, s.updated_at`

type sessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) session.Repository {
	return &sessionRepository{db: db}
}

func scanSession(row pgx.Row) (session.Session, error) {
	var s session.Session
	err := row.Scan(
		&s.ID, &s.WorkerID, &s.OrganizationID, &s.StartedAt, &s.EndedAt, &s.KindTag,
		&s.DurationMinutes, &s.ApprovalStatus, &s.ApprovedBy, &s.ApprovedAt,
		&s.ApprovalNotes, &s.RejectionReason, &s.Notes, &s.TeamID, &s.ShiftLabel,
		&s.AutoClosed, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Create implements session.Repository. The sessions table carries a partial
// unique index on (worker_id) WHERE ended_at IS NULL; a duplicate open row is
// rejected by the store and surfaced as ErrAlreadyActive.
func (r *sessionRepository) Create(ctx context.Context, s session.Session) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO sessions (
			worker_id, organization_id, started_at, kind_tag, approval_status,
			notes, team_id, shift_label
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		s.WorkerID,
		s.OrganizationID,
		s.StartedAt,
		s.KindTag,
		s.ApprovalStatus,
		s.Notes,
		s.TeamID,
		s.ShiftLabel,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return session.Session{}, session.ErrAlreadyActive
		}
		return session.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return s, nil
}

// GetByID implements session.Repository.
func (r *sessionRepository) GetByID(ctx context.Context, id string, organizationID string) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `, w.full_name AS worker_name
		FROM sessions s
		LEFT JOIN workers w ON w.id = s.worker_id
		WHERE s.id = $1 AND s.organization_id = $2
	`

	var s session.Session
	err := q.QueryRow(ctx, query, id, organizationID).Scan(
		&s.ID, &s.WorkerID, &s.OrganizationID, &s.StartedAt, &s.EndedAt, &s.KindTag,
		&s.DurationMinutes, &s.ApprovalStatus, &s.ApprovedBy, &s.ApprovedAt,
		&s.ApprovalNotes, &s.RejectionReason, &s.Notes, &s.TeamID, &s.ShiftLabel,
		&s.AutoClosed, &s.CreatedAt, &s.UpdatedAt,
		&s.WorkerName,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return session.Session{}, session.ErrSessionNotFound
		}
		return session.Session{}, fmt.Errorf("failed to get session by ID: %w", err)
	}

	return s, nil
}

// GetOpenSession implements session.Repository.
func (r *sessionRepository) GetOpenSession(ctx context.Context, workerID string) (*session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions s
		WHERE s.worker_id = $1
		  AND s.ended_at IS NULL
		ORDER BY s.started_at DESC
		LIMIT 1
	`

	s, err := scanSession(q.QueryRow(ctx, query, workerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // worker is off the clock
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}

	return &s, nil
}

// Close implements session.Repository. The WHERE guard makes the close
// conditional on the row still being open, so a concurrent or repeated close
// resolves to ErrNoActiveSession instead of overwriting ended_at.
func (r *sessionRepository) Close(ctx context.Context, id string, endedAt time.Time, durationMinutes int, notes *string) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE sessions s
		SET ended_at = $2,
			duration_minutes = $3,
			approval_status = $4,
			notes = COALESCE($5, notes),
			updated_at = $6
		WHERE s.id = $1
		  AND s.ended_at IS NULL
		RETURNING ` + sessionColumns

	s, err := scanSession(q.QueryRow(ctx, query, id, endedAt, durationMinutes, session.ApprovalPending, notes, time.Now()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return session.Session{}, session.ErrNoActiveSession
		}
		return session.Session{}, fmt.Errorf("failed to close session: %w", err)
	}

	return s, nil
}

// ForceClose implements session.Repository.
func (r *sessionRepository) ForceClose(ctx context.Context, id string, endedAt time.Time, durationMinutes int, annotation string) (session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE sessions s
		SET ended_at = $2,
			duration_minutes = $3,
			approval_status = $4,
			auto_closed = TRUE,
			notes = CASE WHEN notes IS NULL OR notes = '' THEN $5 ELSE notes || ' | ' || $5 END,
			updated_at = $6
		WHERE s.id = $1
		  AND s.ended_at IS NULL
		RETURNING ` + sessionColumns

	s, err := scanSession(q.QueryRow(ctx, query, id, endedAt, durationMinutes, session.ApprovalPending, annotation, time.Now()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return session.Session{}, session.ErrNoActiveSession
		}
		return session.Session{}, fmt.Errorf("failed to force close session: %w", err)
	}

	return s, nil
}

// ListStaleOpen implements session.Repository.
func (r *sessionRepository) ListStaleOpen(ctx context.Context, openedBefore time.Time) ([]session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions s
		WHERE s.ended_at IS NULL
		  AND s.started_at < $1
		ORDER BY s.started_at ASC
	`

	rows, err := q.Query(ctx, query, openedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}

// ListClosedByWorkerAndRange implements session.Repository.
func (r *sessionRepository) ListClosedByWorkerAndRange(ctx context.Context, workerID string, from, to time.Time) ([]session.Session, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions s
		WHERE s.worker_id = $1
		  AND s.ended_at IS NOT NULL
		  AND s.started_at >= $2
		  AND s.started_at < $3
		ORDER BY s.started_at ASC
	`

	rows, err := q.Query(ctx, query, workerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closed session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}

// ListMySessions implements session.Repository.
func (r *sessionRepository) ListMySessions(ctx context.Context, workerID string, filter session.MySessionsFilter) ([]session.Session, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "s.worker_id = $1"
	args := []interface{}{workerID}
	argIdx := 2

	if filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND s.started_at >= $%d", argIdx)
		args = append(args, filter.StartDate)
		argIdx++
	}
	if filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND s.started_at < ($%d::date + INTERVAL '1 day')", argIdx)
		args = append(args, filter.EndDate)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM sessions s WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM sessions s
		WHERE %s
		ORDER BY s.started_at DESC
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
		return nil, 0, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, total, nil
}

// ListTeamByDate implements session.Repository.
func (r *sessionRepository) ListTeamByDate(ctx context.Context, organizationID string, filter session.TeamSessionsFilter) ([]session.Session, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "s.organization_id = $1 AND s.started_at >= $2::date AND s.started_at < ($2::date + INTERVAL '1 day')"
	args := []interface{}{organizationID, filter.Date}
	argIdx := 3

	if filter.TeamID != nil && *filter.TeamID != "" {
		baseWhere += fmt.Sprintf(" AND s.team_id = $%d", argIdx)
		args = append(args, *filter.TeamID)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM sessions s WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count team sessions: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s, w.full_name AS worker_name
		FROM sessions s
		LEFT JOIN workers w ON w.id = s.worker_id
		WHERE %s
		ORDER BY s.started_at ASC
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
		return nil, 0, fmt.Errorf("failed to query team sessions: %w", err)
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
			return nil, 0, fmt.Errorf("failed to scan team session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, total, nil
}
