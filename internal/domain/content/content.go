package content

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds for the quality signal used by pricing.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Content is a catalog item that can be streamed under metered billing.
// Catalog management itself lives outside the settlement engine; this type
// carries only what pricing and settlement need.
type Content struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	ProviderID      uuid.UUID `json:"provider_id"`
	Rating          *float64  `json:"rating,omitempty"` // Nil until first resolution assigns one
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ClampRating forces a rating into the valid [1.0, 5.0] range.
func ClampRating(rating float64) float64 {
	if rating < MinRating {
		return MinRating
	}
	if rating > MaxRating {
		return MaxRating
	}
	return rating
}
