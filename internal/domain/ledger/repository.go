package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages ledger entry persistence. Entries are append-only: there
// is no update or delete operation in normal operation.
type Repository interface {
	// Append stores a new entry. For session-correlated entries it returns
	// ErrDuplicateEntry if an entry of the same type already exists for the
	// session, which makes settlement retries safe.
	Append(ctx context.Context, entry *Entry) error

	GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*Entry, error)

	// GetByAccount retrieves paginated entries where the account is either the
	// payer or the receiver, newest first.
	GetByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// Filtered sums used by balance derivation. Lock entries are deliberately
	// excluded: a lock is a hold, not a realized expense.
	SumDeposits(ctx context.Context, accountID uuid.UUID) (int64, error)
	SumCharges(ctx context.Context, accountID uuid.UUID) (int64, error)
	SumRefunds(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	SessionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found for session: " + e.SessionID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.SessionID == uuid.Nil {
		return true
	}
	return e.SessionID == t.SessionID
}

// ErrDuplicateEntry indicates a (session, entry type) uniqueness violation
type ErrDuplicateEntry struct {
	SessionID uuid.UUID
	Type      EntryType
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate " + string(e.Type) + " entry for session: " + e.SessionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.SessionID == uuid.Nil {
		return true
	}
	return e.SessionID == t.SessionID && e.Type == t.Type
}
