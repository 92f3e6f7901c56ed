package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAmount rejects non-positive monetary amounts before any ledger write
var ErrInvalidAmount = errors.New("amount must be positive")

// EntryType defines the kind of monetary movement an entry records
type EntryType string

const (
	EntryTypeDeposit EntryType = "deposit"
	EntryTypeLock    EntryType = "lock"
	EntryTypeCharge  EntryType = "charge"
	EntryTypeRefund  EntryType = "refund"
)

// EntryStatus defines the settlement state of an entry. No pending or partial
// states are modeled; every appended entry is final.
type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "completed"
)

// Entry is one immutable record in the append-only payment ledger. The ledger
// is the only persisted source of truth for money: wallet balances are always
// derived by folding entries, never stored.
//
// Exactly one of FromAccount/ToAccount is populated: deposits and refunds name
// the receiving account, locks and charges name the paying account.
type Entry struct {
	ID            uuid.UUID   `json:"id" bson:"entry_id"`
	SessionID     *uuid.UUID  `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Type          EntryType   `json:"entry_type" bson:"entry_type"`
	Amount        int64       `json:"amount" bson:"amount"` // Minor units
	FromAccount   *uuid.UUID  `json:"from_account,omitempty" bson:"from_account,omitempty"`
	ToAccount     *uuid.UUID  `json:"to_account,omitempty" bson:"to_account,omitempty"`
	Status        EntryStatus `json:"status" bson:"status"`
	CorrelationID string      `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
}

// NewDeposit creates a completed deposit entry crediting the given account.
// Deposits have no session correlation.
func NewDeposit(toAccount uuid.UUID, amount int64, correlationID string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Entry{
		ID:            uuid.New(),
		Type:          EntryTypeDeposit,
		Amount:        amount,
		ToAccount:     &toAccount,
		Status:        EntryStatusCompleted,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewLock creates a completed lock entry recording a provisional hold against
// the paying account. Locks are excluded from balance derivation; they are
// resolved into a charge/refund pair at settlement.
func NewLock(sessionID uuid.UUID, fromAccount uuid.UUID, amount int64, correlationID string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Entry{
		ID:            uuid.New(),
		SessionID:     &sessionID,
		Type:          EntryTypeLock,
		Amount:        amount,
		FromAccount:   &fromAccount,
		Status:        EntryStatusCompleted,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewCharge creates a completed charge entry debiting the paying account for
// the settled portion of a session's lock.
func NewCharge(sessionID uuid.UUID, fromAccount uuid.UUID, amount int64, correlationID string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Entry{
		ID:            uuid.New(),
		SessionID:     &sessionID,
		Type:          EntryTypeCharge,
		Amount:        amount,
		FromAccount:   &fromAccount,
		Status:        EntryStatusCompleted,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewRefund creates a completed refund entry crediting the unused remainder of
// a session's lock back to the user.
func NewRefund(sessionID uuid.UUID, toAccount uuid.UUID, amount int64, correlationID string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Entry{
		ID:            uuid.New(),
		SessionID:     &sessionID,
		Type:          EntryTypeRefund,
		Amount:        amount,
		ToAccount:     &toAccount,
		Status:        EntryStatusCompleted,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
