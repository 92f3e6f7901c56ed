// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the settlement engine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL error code raised when the partial unique
// index on open sessions per user is hit.
const uniqueViolation = "23505"

// SessionRepository implements the session.Repository interface for PostgreSQL
type SessionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewSessionRepository(logger *slog.Logger, db *persistence.PostgresDB) session.Repository {
	return &SessionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *SessionRepository) WithTx(tx pgx.Tx) session.Repository {
	return &SessionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new locked session. The one-open-session-per-user rule is
// enforced by a partial unique index on (user_id) over open rows, so a second
// concurrent lock surfaces here as ErrSessionAlreadyActive.
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, content_id, status, locked_amount, price_per_minute, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		sess.ID,
		sess.UserID,
		sess.ContentID,
		sess.Status,
		sess.LockedAmount,
		sess.PricePerMinute,
		sess.Version,
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return session.ErrSessionAlreadyActive{UserID: sess.UserID}
		}
		r.logger.Error("Failed to create session", "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	query := selectColumns + ` WHERE id = $1`

	sess, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound{SessionID: id}
		}
		r.logger.Error("Failed to get session", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return sess, nil
}

// GetOpenByUser retrieves the user's open (locked or active) session. The
// partial unique index guarantees at most one such row exists.
func (r *SessionRepository) GetOpenByUser(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	query := selectColumns + ` WHERE user_id = $1 AND status IN ('locked', 'active')`

	sess, err := r.scanOne(r.querier.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No open session is a normal condition, not an error
		}
		r.logger.Error("Failed to get open session", "userID", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}

	return sess, nil
}

// Update persists a state transition using optimistic locking. The in-memory
// session already carries the incremented version; the WHERE clause checks
// the previous one.
func (r *SessionRepository) Update(ctx context.Context, sess *session.Session) error {
	query := `
		UPDATE sessions
		SET status = $1, start_time = $2, end_time = $3, duration_seconds = $4,
		    final_cost = $5, amount_paid = $6, amount_refunded = $7,
		    version = $8, updated_at = $9
		WHERE id = $10 AND version = $11
	`

	result, err := r.querier.Exec(ctx, query,
		sess.Status,
		sess.StartTime,
		sess.EndTime,
		sess.DurationSeconds,
		sess.FinalCost,
		sess.AmountPaid,
		sess.AmountRefunded,
		sess.Version,
		sess.UpdatedAt,
		sess.ID,
		sess.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update session", "id", sess.ID.String(), "error", err)
		return fmt.Errorf("failed to update session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return session.ErrConcurrentModification{SessionID: sess.ID}
	}

	return nil
}

// ListStuck returns open sessions whose last update predates the cutoff,
// oldest first. Used by the reconciliation sweep.
func (r *SessionRepository) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]*session.Session, error) {
	query := selectColumns + `
		WHERE status IN ('locked', 'active') AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to list stuck sessions", "error", err)
		return nil, fmt.Errorf("failed to list stuck sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stuck session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stuck sessions: %w", err)
	}

	return sessions, nil
}

const selectColumns = `
	SELECT id, user_id, content_id, status, locked_amount, price_per_minute,
	       start_time, end_time, duration_seconds, final_cost, amount_paid,
	       amount_refunded, version, created_at, updated_at
	FROM sessions`

func (r *SessionRepository) scanOne(row pgx.Row) (*session.Session, error) {
	var sess session.Session
	err := row.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.ContentID,
		&sess.Status,
		&sess.LockedAmount,
		&sess.PricePerMinute,
		&sess.StartTime,
		&sess.EndTime,
		&sess.DurationSeconds,
		&sess.FinalCost,
		&sess.AmountPaid,
		&sess.AmountRefunded,
		&sess.Version,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
