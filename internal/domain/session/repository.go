package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines session persistence operations
type Repository interface {
	// Create stores a new locked session. Returns ErrSessionAlreadyActive if
	// the user already holds an open (locked or active) session; this is the
	// durable, user-keyed guard against double-spending the same funds.
	Create(ctx context.Context, sess *Session) error

	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// GetOpenByUser returns the user's open session, or nil if none.
	GetOpenByUser(ctx context.Context, userID uuid.UUID) (*Session, error)

	// Update persists a state transition using optimistic locking.
	// Returns ErrConcurrentModification if the row changed underneath.
	Update(ctx context.Context, sess *Session) error

	// ListStuck returns open sessions untouched since the cutoff, oldest
	// first, for the reconciliation sweep.
	ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]*Session, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrSessionNotFound indicates a missing session
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e ErrSessionNotFound) Error() string {
	return "session not found: " + e.SessionID.String()
}

// Is implements the errors.Is interface for ErrSessionNotFound
func (e ErrSessionNotFound) Is(target error) bool {
	t, ok := target.(ErrSessionNotFound)
	if !ok {
		return false
	}
	if t.SessionID == uuid.Nil {
		return true
	}
	return e.SessionID == t.SessionID
}

// ErrSessionAlreadyActive indicates the user already holds an open session
type ErrSessionAlreadyActive struct {
	UserID uuid.UUID
}

func (e ErrSessionAlreadyActive) Error() string {
	return "user already has an open session: " + e.UserID.String()
}

// Is implements the errors.Is interface for ErrSessionAlreadyActive
func (e ErrSessionAlreadyActive) Is(target error) bool {
	t, ok := target.(ErrSessionAlreadyActive)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}

// ErrStateMismatch indicates a transition attempted from the wrong state.
// The session is left unchanged.
type ErrStateMismatch struct {
	SessionID uuid.UUID
	Expected  Status
	Actual    Status
}

func (e ErrStateMismatch) Error() string {
	return "session " + e.SessionID.String() + " is " + string(e.Actual) + ", expected " + string(e.Expected)
}

// Is implements the errors.Is interface for ErrStateMismatch
func (e ErrStateMismatch) Is(target error) bool {
	_, ok := target.(ErrStateMismatch)
	return ok
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	SessionID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for session: " + e.SessionID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.SessionID == uuid.Nil {
		return true
	}
	return e.SessionID == t.SessionID
}
