package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/domain/notification"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/database"
)

type ledgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates the durable dispatch idempotency ledger
func NewLedgerRepository(db *database.DB) notification.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Claim implements notification.LedgerRepository. A single statement decides
// the race: the insert wins a fresh key, the conditional upsert takes over a
// failed or expired claim, and everything else returns no row. Sent records
// are never overwritten.
func (r *ledgerRepository) Claim(ctx context.Context, key string, payload map[string]interface{}, ttl time.Duration) error {
	q := GetQuerier(ctx, r.db)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}

	now := time.Now()
	expiredBefore := now.Add(-ttl)

	query := `
		INSERT INTO notification_dispatches (key, status, payload, claimed_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (key) DO UPDATE
		SET status = $2,
			payload = $3,
			claimed_at = $4,
			updated_at = $4,
			last_error = NULL,
			delivery_id = NULL
		WHERE notification_dispatches.status = $5
		   OR (notification_dispatches.status = $2 AND notification_dispatches.claimed_at < $6)
		RETURNING key
	`

	var claimed string
	err = q.QueryRow(ctx, query,
		key,
		notification.DispatchInProgress,
		payloadJSON,
		now,
		notification.DispatchFailed,
		expiredBefore,
	).Scan(&claimed)

	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return fmt.Errorf("failed to claim dispatch key: %w", err)
	}

	// The key is held; read it to say how.
	record, getErr := r.Get(ctx, key)
	if getErr != nil {
		return getErr
	}
	if record == nil {
		// Row vanished between the upsert and the read; treat as contended.
		return notification.ErrDispatchInProgress
	}
	if record.Status == notification.DispatchSent {
		return notification.ErrAlreadyDispatched
	}
	return notification.ErrDispatchInProgress
}

// MarkSent implements notification.LedgerRepository.
func (r *ledgerRepository) MarkSent(ctx context.Context, key string, deliveryID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notification_dispatches
		SET status = $2, delivery_id = $3, updated_at = $4
		WHERE key = $1
	`

	tag, err := q.Exec(ctx, query, key, notification.DispatchSent, deliveryID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark dispatch sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dispatch key %s not found", key)
	}

	return nil
}

// MarkFailed implements notification.LedgerRepository.
func (r *ledgerRepository) MarkFailed(ctx context.Context, key string, lastError string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notification_dispatches
		SET status = $2, last_error = $3, updated_at = $4
		WHERE key = $1
	`

	tag, err := q.Exec(ctx, query, key, notification.DispatchFailed, lastError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark dispatch failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dispatch key %s not found", key)
	}

	return nil
}

// Get implements notification.LedgerRepository.
func (r *ledgerRepository) Get(ctx context.Context, key string) (*notification.DispatchRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT key, status, payload, delivery_id, last_error, claimed_at, updated_at
		FROM notification_dispatches
		WHERE key = $1
	`

	var rec notification.DispatchRecord
	var payloadJSON []byte
	err := q.QueryRow(ctx, query, key).Scan(
		&rec.Key,
		&rec.Status,
		&payloadJSON,
		&rec.DeliveryID,
		&rec.LastError,
		&rec.ClaimedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dispatch record: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dispatch payload: %w", err)
		}
	}

	return &rec, nil
}
