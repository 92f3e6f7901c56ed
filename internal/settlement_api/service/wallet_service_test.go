package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockWalletOperations for testing
type MockWalletOperations struct {
	mock.Mock
}

func (m *MockWalletOperations) Deposit(ctx context.Context, userID uuid.UUID, amount int64, correlationID string) (*wallet.DepositReceipt, error) {
	args := m.Called(ctx, userID, amount, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.DepositReceipt), args.Error(1)
}

func (m *MockWalletOperations) Balance(ctx context.Context, userID uuid.UUID) (*wallet.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletOperations) History(ctx context.Context, userID uuid.UUID, limit, offset int) (*wallet.History, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.History), args.Error(1)
}

func TestWalletService_GetPayments_Paging(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name           string
		page           int
		perPage        int
		expectedLimit  int
		expectedOffset int
	}{
		{"first page", 1, 10, 10, 0},
		{"third page", 3, 25, 25, 50},
		{"zero page defaults to first", 0, 10, 10, 0},
		{"zero per page defaults to ten", 2, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockWallets := &MockWalletOperations{}
			svc := NewWalletService(mockWallets)

			mockWallets.On("History", mock.Anything, userID, tt.expectedLimit, tt.expectedOffset).
				Return(&wallet.History{Limit: tt.expectedLimit, Offset: tt.expectedOffset}, nil).Once()

			history, err := svc.GetPayments(context.Background(), userID, tt.page, tt.perPage)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedLimit, history.Limit)
			mockWallets.AssertExpectations(t)
		})
	}
}

func TestWalletService_Deposit(t *testing.T) {
	userID := uuid.New()
	mockWallets := &MockWalletOperations{}
	svc := NewWalletService(mockWallets)

	receipt := &wallet.DepositReceipt{
		EntryID:    uuid.New(),
		UserID:     userID,
		Amount:     20000,
		NewBalance: 20000,
	}
	mockWallets.On("Deposit", mock.Anything, userID, int64(20000), "corr").Return(receipt, nil).Once()

	result, err := svc.Deposit(context.Background(), userID, 20000, "corr")
	assert.NoError(t, err)
	assert.Equal(t, receipt, result)
	mockWallets.AssertExpectations(t)
}
