package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/streampay-settlement-engine/internal/domain/content"
	"github.com/streampay-settlement-engine/internal/platform/persistence"
)

// ContentRepository implements the content.Repository interface for PostgreSQL
type ContentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewContentRepository creates a new PostgreSQL content repository
func NewContentRepository(logger *slog.Logger, db *persistence.PostgresDB) content.Repository {
	return &ContentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a catalog item by its ID
func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*content.Content, error) {
	query := `
		SELECT id, title, provider_id, rating, duration_minutes, created_at, updated_at
		FROM content_items
		WHERE id = $1
	`

	var c content.Content
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.ProviderID,
		&c.Rating,
		&c.DurationMinutes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrContentNotFound{ContentID: id}
		}
		r.logger.Error("Failed to get content", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	return &c, nil
}

// AssignRatingIfUnset sets the rating only where it is still null. The
// WHERE clause makes the assignment a single atomic compare-and-set, so
// concurrent first resolutions converge on one value.
func (r *ContentRepository) AssignRatingIfUnset(ctx context.Context, id uuid.UUID, rating float64) error {
	query := `
		UPDATE content_items
		SET rating = $1, updated_at = NOW()
		WHERE id = $2 AND rating IS NULL
	`

	_, err := r.querier.Exec(ctx, query, rating, id)
	if err != nil {
		r.logger.Error("Failed to assign content rating", "id", id.String(), "error", err)
		return fmt.Errorf("failed to assign content rating: %w", err)
	}

	return nil
}
