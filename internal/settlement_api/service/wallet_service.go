package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/wallet"
)

// walletOperations is the slice of the wallet service this layer needs
type walletOperations interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, correlationID string) (*wallet.DepositReceipt, error)
	Balance(ctx context.Context, userID uuid.UUID) (*wallet.Balance, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) (*wallet.History, error)
}

// WalletServiceImpl implements the WalletService interface
type WalletServiceImpl struct {
	wallets walletOperations
}

// NewWalletService creates a new wallet service
func NewWalletService(wallets walletOperations) WalletService {
	return &WalletServiceImpl{
		wallets: wallets,
	}
}

// Deposit credits the user's wallet through the ledger
func (s *WalletServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount int64, correlationID string) (*wallet.DepositReceipt, error) {
	return s.wallets.Deposit(ctx, userID, amount, correlationID)
}

// GetBalance derives the user's available balance
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Balance, error) {
	return s.wallets.Balance(ctx, userID)
}

// GetPayments translates page/per_page into the ledger's limit/offset paging
func (s *WalletServiceImpl) GetPayments(ctx context.Context, userID uuid.UUID, page, perPage int) (*wallet.History, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage
	return s.wallets.History(ctx, userID, perPage, offset)
}
