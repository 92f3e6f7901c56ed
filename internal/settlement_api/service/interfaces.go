package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/escrow"
	"github.com/streampay-settlement-engine/internal/pricing"
	"github.com/streampay-settlement-engine/internal/wallet"
)

// WalletService defines the interface for wallet operations
type WalletService interface {
	// Deposit credits the user's wallet and returns a receipt including the
	// new derived balance. Returns ledger.ErrInvalidAmount for amount <= 0.
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, correlationID string) (*wallet.DepositReceipt, error)

	// GetBalance derives the user's available balance from the ledger
	GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Balance, error)

	// GetPayments returns one page of the user's ledger activity, newest first
	GetPayments(ctx context.Context, userID uuid.UUID, page, perPage int) (*wallet.History, error)
}

// SessionEndResult combines the settlement figures with the user's balance
// after the settlement has been applied.
type SessionEndResult struct {
	Settlement   *escrow.SettleResult
	FinalBalance int64
}

// SessionService defines the interface for session lifecycle operations
type SessionService interface {
	// Create locks funds for a new viewing session.
	// Returns escrow.ErrInsufficientBalance, session.ErrSessionAlreadyActive
	// or content.ErrContentNotFound.
	Create(ctx context.Context, userID, contentID uuid.UUID, correlationID string) (*escrow.LockResult, error)

	// Start transitions a locked session to active
	Start(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error)

	// End settles the session and returns the final figures plus the user's
	// post-settlement balance. Idempotent per session.
	End(ctx context.Context, sessionID, userID uuid.UUID, durationSeconds int64, correlationID string) (*SessionEndResult, error)

	// EndSignal handles the best-effort disconnect beacon. It never fails.
	EndSignal(ctx context.Context, signal escrow.DetachedSignal) *escrow.SettleResult

	// GetByID returns the session if it belongs to the user
	GetByID(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error)

	// GetActive returns the user's open session, or
	// session.ErrSessionNotFound when the user has none.
	GetActive(ctx context.Context, userID uuid.UUID) (*session.Session, error)
}

// PricingService defines the interface for content pricing queries
type PricingService interface {
	// GetPricing returns the quote for a content item, assigning the default
	// rating on first resolution. Returns content.ErrContentNotFound.
	GetPricing(ctx context.Context, contentID uuid.UUID) (*pricing.Quote, error)
}
