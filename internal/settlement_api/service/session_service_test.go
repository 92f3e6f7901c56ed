package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/escrow"
	"github.com/streampay-settlement-engine/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEscrow for testing
type MockEscrow struct {
	mock.Mock
}

func (m *MockEscrow) Lock(ctx context.Context, userID, contentID uuid.UUID, correlationID string) (*escrow.LockResult, error) {
	args := m.Called(ctx, userID, contentID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.LockResult), args.Error(1)
}

func (m *MockEscrow) Start(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockEscrow) Settle(ctx context.Context, sessionID, userID uuid.UUID, durationSeconds int64, correlationID string) (*escrow.SettleResult, error) {
	args := m.Called(ctx, sessionID, userID, durationSeconds, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.SettleResult), args.Error(1)
}

func (m *MockEscrow) SettleDetached(ctx context.Context, signal escrow.DetachedSignal) *escrow.SettleResult {
	args := m.Called(ctx, signal)
	return args.Get(0).(*escrow.SettleResult)
}

func (m *MockEscrow) Get(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockEscrow) GetOpenByUser(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

// MockWalletService for testing
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) Deposit(ctx context.Context, userID uuid.UUID, amount int64, correlationID string) (*wallet.DepositReceipt, error) {
	args := m.Called(ctx, userID, amount, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.DepositReceipt), args.Error(1)
}

func (m *MockWalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletService) GetPayments(ctx context.Context, userID uuid.UUID, page, perPage int) (*wallet.History, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.History), args.Error(1)
}

func TestSessionService_End(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()

	t.Run("combines settlement figures with derived balance", func(t *testing.T) {
		mockEscrow := &MockEscrow{}
		mockWallets := &MockWalletService{}
		svc := NewSessionService(mockEscrow, mockWallets)

		settlement := &escrow.SettleResult{
			SessionID:       sessionID,
			UserID:          userID,
			DurationSeconds: 600,
			AmountCharged:   2000,
			AmountRefunded:  1000,
		}

		mockEscrow.On("Settle", mock.Anything, sessionID, userID, int64(600), "corr").Return(settlement, nil).Once()
		mockWallets.On("GetBalance", mock.Anything, userID).Return(&wallet.Balance{
			UserID:    userID,
			Available: 19000,
		}, nil).Once()

		result, err := svc.End(context.Background(), sessionID, userID, 600, "corr")
		assert.NoError(t, err)
		assert.Equal(t, settlement, result.Settlement)
		assert.Equal(t, int64(19000), result.FinalBalance)

		mockEscrow.AssertExpectations(t)
		mockWallets.AssertExpectations(t)
	})

	t.Run("settlement error is propagated", func(t *testing.T) {
		mockEscrow := &MockEscrow{}
		mockWallets := &MockWalletService{}
		svc := NewSessionService(mockEscrow, mockWallets)

		mockEscrow.On("Settle", mock.Anything, sessionID, userID, int64(600), "").
			Return(nil, session.ErrSessionNotFound{SessionID: sessionID}).Once()

		result, err := svc.End(context.Background(), sessionID, userID, 600, "")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, session.ErrSessionNotFound{})

		mockWallets.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
	})

	t.Run("balance read error is propagated", func(t *testing.T) {
		mockEscrow := &MockEscrow{}
		mockWallets := &MockWalletService{}
		svc := NewSessionService(mockEscrow, mockWallets)

		mockEscrow.On("Settle", mock.Anything, sessionID, userID, int64(0), "").
			Return(&escrow.SettleResult{SessionID: sessionID}, nil).Once()
		mockWallets.On("GetBalance", mock.Anything, userID).Return(nil, errors.New("mongo down")).Once()

		result, err := svc.End(context.Background(), sessionID, userID, 0, "")
		assert.Nil(t, result)
		assert.Error(t, err)
	})
}

func TestSessionService_EndSignal(t *testing.T) {
	mockEscrow := &MockEscrow{}
	mockWallets := &MockWalletService{}
	svc := NewSessionService(mockEscrow, mockWallets)

	signal := escrow.DetachedSignal{
		UserID:          uuid.New(),
		SessionID:       uuid.New(),
		DurationSeconds: 300,
	}

	expected := &escrow.SettleResult{
		SessionID:  signal.SessionID,
		BestEffort: true,
	}
	mockEscrow.On("SettleDetached", mock.Anything, signal).Return(expected).Once()

	result := svc.EndSignal(context.Background(), signal)
	assert.Equal(t, expected, result)
	mockEscrow.AssertExpectations(t)
}

func TestSessionService_GetActive(t *testing.T) {
	mockEscrow := &MockEscrow{}
	mockWallets := &MockWalletService{}
	svc := NewSessionService(mockEscrow, mockWallets)

	userID := uuid.New()

	t.Run("Found", func(t *testing.T) {
		open := session.New(userID, uuid.New(), 3000, 200)
		mockEscrow.On("GetOpenByUser", mock.Anything, userID).Return(open, nil).Once()

		result, err := svc.GetActive(context.Background(), userID)
		assert.NoError(t, err)
		assert.Equal(t, open, result)
	})

	t.Run("NoneOpen", func(t *testing.T) {
		mockEscrow.On("GetOpenByUser", mock.Anything, userID).
			Return(nil, session.ErrSessionNotFound{}).Once()

		result, err := svc.GetActive(context.Background(), userID)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, session.ErrSessionNotFound{})
	})
}

func TestSessionService_Create(t *testing.T) {
	mockEscrow := &MockEscrow{}
	mockWallets := &MockWalletService{}
	svc := NewSessionService(mockEscrow, mockWallets)

	userID := uuid.New()
	contentID := uuid.New()
	lock := &escrow.LockResult{
		SessionID:      uuid.New(),
		UserID:         userID,
		ContentID:      contentID,
		LockedAmount:   3000,
		PricePerMinute: 200,
		CreatedAt:      time.Now(),
	}

	mockEscrow.On("Lock", mock.Anything, userID, contentID, "corr").Return(lock, nil).Once()

	result, err := svc.Create(context.Background(), userID, contentID, "corr")
	assert.NoError(t, err)
	assert.Equal(t, lock, result)
}
