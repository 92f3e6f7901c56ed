package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/escrow"
)

// escrowOperations is the slice of the escrow manager this layer needs
type escrowOperations interface {
	Lock(ctx context.Context, userID, contentID uuid.UUID, correlationID string) (*escrow.LockResult, error)
	Start(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error)
	Settle(ctx context.Context, sessionID, userID uuid.UUID, durationSeconds int64, correlationID string) (*escrow.SettleResult, error)
	SettleDetached(ctx context.Context, signal escrow.DetachedSignal) *escrow.SettleResult
	Get(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error)
	GetOpenByUser(ctx context.Context, userID uuid.UUID) (*session.Session, error)
}

// SessionServiceImpl implements the SessionService interface
type SessionServiceImpl struct {
	escrow  escrowOperations
	wallets WalletService
}

// NewSessionService creates a new session service
func NewSessionService(escrowMgr escrowOperations, wallets WalletService) SessionService {
	return &SessionServiceImpl{
		escrow:  escrowMgr,
		wallets: wallets,
	}
}

// Create locks funds for a new viewing session
func (s *SessionServiceImpl) Create(ctx context.Context, userID, contentID uuid.UUID, correlationID string) (*escrow.LockResult, error) {
	return s.escrow.Lock(ctx, userID, contentID, correlationID)
}

// Start transitions a locked session to active
func (s *SessionServiceImpl) Start(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	return s.escrow.Start(ctx, sessionID, userID)
}

// End settles the session and reads the resulting balance
func (s *SessionServiceImpl) End(ctx context.Context, sessionID, userID uuid.UUID, durationSeconds int64, correlationID string) (*SessionEndResult, error) {
	result, err := s.escrow.Settle(ctx, sessionID, userID, durationSeconds, correlationID)
	if err != nil {
		return nil, err
	}

	balance, err := s.wallets.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &SessionEndResult{
		Settlement:   result,
		FinalBalance: balance.Available,
	}, nil
}

// EndSignal handles the best-effort disconnect beacon
func (s *SessionServiceImpl) EndSignal(ctx context.Context, signal escrow.DetachedSignal) *escrow.SettleResult {
	return s.escrow.SettleDetached(ctx, signal)
}

// GetByID returns the session if it belongs to the user
func (s *SessionServiceImpl) GetByID(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	return s.escrow.Get(ctx, sessionID, userID)
}

// GetActive returns the user's open session
func (s *SessionServiceImpl) GetActive(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	return s.escrow.GetOpenByUser(ctx, userID)
}
