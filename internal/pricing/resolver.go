// Package pricing derives per-minute prices and lock amounts from content
// quality ratings. Pricing is resolved once per lock and then frozen on the
// session, so later rating changes never affect an open session.
package pricing

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/streampay-settlement-engine/internal/domain/content"
)

// Rating-to-price line: a floor of 100 minor units per minute at the minimum
// rating, plus 50 per full rating point above it, capped at 300.
const (
	BasePricePerMinute  = 100
	PricePerRatingPoint = 50
	MaxPricePerMinute   = 300

	// DefaultRating is assigned to content that has never been rated, at the
	// moment of its first pricing resolution.
	DefaultRating = 3.0
)

// Quote is the fixed pricing outcome for one lock attempt.
type Quote struct {
	ContentID      uuid.UUID `json:"content_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	Title          string    `json:"title"`
	Rating         float64   `json:"rating"`
	PricePerMinute int64     `json:"price_per_minute"` // Minor units
	LockAmount     int64     `json:"lock_amount"`      // Minor units, for the full declared duration
}

// PricePerMinute maps a rating to a per-minute price in minor units. The
// rating is clamped into its valid range first and the fractional part is
// rounded half away from zero.
func PricePerMinute(rating float64) int64 {
	rating = content.ClampRating(rating)
	price := BasePricePerMinute + int64(math.Round((rating-content.MinRating)*PricePerRatingPoint))
	if price > MaxPricePerMinute {
		price = MaxPricePerMinute
	}
	if price < BasePricePerMinute {
		price = BasePricePerMinute
	}
	return price
}

// LockAmount computes the upfront hold for a full viewing: half the full
// duration cost, rounded half-up.
func LockAmount(pricePerMinute int64, durationMinutes int) int64 {
	return (pricePerMinute*int64(durationMinutes) + 1) / 2
}

// Resolver computes pricing quotes and assigns default ratings on first use.
type Resolver struct {
	contents content.Repository
	logger   *slog.Logger
}

// NewResolver creates a pricing resolver backed by the content catalog.
func NewResolver(logger *slog.Logger, contents content.Repository) *Resolver {
	return &Resolver{
		contents: contents,
		logger:   logger,
	}
}

// Resolve returns the pricing quote for a content item. Unrated content gets
// the default rating assigned first, through an atomic set-if-null, then is
// re-read so concurrent resolutions all see the same stored rating.
func (r *Resolver) Resolve(ctx context.Context, contentID uuid.UUID) (*Quote, error) {
	c, err := r.contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if c.Rating == nil {
		if err := r.contents.AssignRatingIfUnset(ctx, contentID, DefaultRating); err != nil {
			return nil, err
		}
		c, err = r.contents.GetByID(ctx, contentID)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Assigned default rating to unrated content",
			"content_id", contentID.String(),
			"rating", DefaultRating)
	}

	rating := DefaultRating
	if c.Rating != nil {
		rating = content.ClampRating(*c.Rating)
	}

	pricePerMinute := PricePerMinute(rating)
	return &Quote{
		ContentID:      c.ID,
		ProviderID:     c.ProviderID,
		Title:          c.Title,
		Rating:         rating,
		PricePerMinute: pricePerMinute,
		LockAmount:     LockAmount(pricePerMinute, c.DurationMinutes),
	}, nil
}
