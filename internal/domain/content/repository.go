package content

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines content catalog reads and the single write the
// settlement engine performs: idempotent rating assignment.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Content, error)

	// AssignRatingIfUnset sets the rating only if it is currently null, as a
	// single atomic compare-and-set. Concurrent first resolutions of the same
	// content therefore agree on one rating; losers are a no-op.
	AssignRatingIfUnset(ctx context.Context, id uuid.UUID, rating float64) error
}

// ErrContentNotFound indicates a missing catalog item
type ErrContentNotFound struct {
	ContentID uuid.UUID
}

func (e ErrContentNotFound) Error() string {
	return "content not found: " + e.ContentID.String()
}

// Is implements the errors.Is interface for ErrContentNotFound
func (e ErrContentNotFound) Is(target error) bool {
	t, ok := target.(ErrContentNotFound)
	if !ok {
		return false
	}
	if t.ContentID == uuid.Nil {
		return true
	}
	return e.ContentID == t.ContentID
}
