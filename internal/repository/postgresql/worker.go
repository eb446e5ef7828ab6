package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/database"
)

type WorkerRepository struct {
	db *database.DB
}

func NewWorkerRepository(db *database.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// EmailFor resolves a worker id to their registered email address.
func (r *WorkerRepository) EmailFor(ctx context.Context, workerID string) (string, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT email FROM workers WHERE id = $1`

	var email string
	err := q.QueryRow(ctx, query, workerID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("worker %s not found", workerID)
		}
		return "", fmt.Errorf("failed to get worker email: %w", err)
	}

	return email, nil
}
