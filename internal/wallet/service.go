// Package wallet derives user balances from the payment ledger and handles
// deposits. There is no stored balance anywhere: every read folds the ledger,
// so the ledger can never disagree with the balance shown to users.
package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/streampay-settlement-engine/internal/domain/ledger"
)

// Balance is a point-in-time derivation from the ledger.
type Balance struct {
	UserID        uuid.UUID `json:"user_id"`
	Available     int64     `json:"available"` // Minor units
	TotalDeposits int64     `json:"total_deposits"`
	TotalCharges  int64     `json:"total_charges"`
	TotalRefunds  int64     `json:"total_refunds"`
	DerivedAt     time.Time `json:"derived_at"`
}

// DepositReceipt confirms a completed deposit.
type DepositReceipt struct {
	EntryID    uuid.UUID `json:"entry_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	NewBalance int64     `json:"new_balance"`
	CreatedAt  time.Time `json:"created_at"`
}

// History is one page of a user's ledger activity, newest first.
type History struct {
	Entries []*ledger.Entry `json:"entries"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// Service exposes wallet reads and deposits over the ledger.
type Service struct {
	entries ledger.Repository
	logger  *slog.Logger
}

// NewService creates a wallet service backed by the ledger repository.
func NewService(logger *slog.Logger, entries ledger.Repository) *Service {
	return &Service{
		entries: entries,
		logger:  logger,
	}
}

// Balance folds the user's ledger into an available balance:
// deposits - charges + refunds. Locks are holds, not expenses, and are
// intentionally left out; open-session exposure is bounded by the lock
// guard at session creation instead.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	deposits, err := s.entries.SumDeposits(ctx, userID)
	if err != nil {
		return nil, err
	}
	charges, err := s.entries.SumCharges(ctx, userID)
	if err != nil {
		return nil, err
	}
	refunds, err := s.entries.SumRefunds(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		UserID:        userID,
		Available:     deposits - charges + refunds,
		TotalDeposits: deposits,
		TotalCharges:  charges,
		TotalRefunds:  refunds,
		DerivedAt:     time.Now().UTC(),
	}, nil
}

// Deposit appends a deposit entry and returns the receipt with the balance
// derived after the write. Non-positive amounts are rejected by the entry
// constructor.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount int64, correlationID string) (*DepositReceipt, error) {
	entry, err := ledger.NewDeposit(userID, amount, correlationID)
	if err != nil {
		return nil, err
	}

	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit recorded",
		"user_id", userID.String(),
		"amount", amount,
		"entry_id", entry.ID.String())

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &DepositReceipt{
		EntryID:    entry.ID,
		UserID:     userID,
		Amount:     amount,
		NewBalance: balance.Available,
		CreatedAt:  entry.CreatedAt,
	}, nil
}

// History returns one page of the user's ledger entries plus the total count
// for pagination.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) (*History, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.entries.GetByAccount(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.entries.CountByAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &History{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
