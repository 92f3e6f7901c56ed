package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/streampay-settlement-engine/internal/domain/ledger"
	"github.com/streampay-settlement-engine/internal/settlement_api/middleware"
	"github.com/streampay-settlement-engine/internal/settlement_api/service"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// Deposit credits a user's wallet and returns the receipt with the new balance
func (h *WalletHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	receipt, err := h.walletService.Deposit(c.Request.Context(), userID, req.Amount, middleware.GetCorrelationID(c))
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			RespondWithError(c, http.StatusBadRequest, "INVALID_AMOUNT", "Deposit amount must be positive")
			return
		}
		h.logger.Error("Failed to process deposit", "user_id", req.UserID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, DepositResponse{
		PaymentID:  receipt.EntryID.String(),
		UserID:     receipt.UserID.String(),
		Amount:     receipt.Amount,
		NewBalance: receipt.NewBalance,
		CreatedAt:  receipt.CreatedAt.Format(time.RFC3339),
	})
}

// GetBalance derives and returns a user's available balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userIDParam := c.Param("userID")
	userID, err := uuid.Parse(userIDParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", userIDParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	balance, err := h.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to derive balance", "user_id", userIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, BalanceResponse{
		UserID:        balance.UserID.String(),
		Balance:       balance.Available,
		TotalDeposits: balance.TotalDeposits,
		TotalCharges:  balance.TotalCharges,
		TotalRefunds:  balance.TotalRefunds,
	})
}

// GetPayments returns a paginated page of the user's ledger activity
func (h *WalletHandler) GetPayments(c *gin.Context) {
	userIDParam := c.Param("userID")
	userID, err := uuid.Parse(userIDParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", userIDParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	history, err := h.walletService.GetPayments(c.Request.Context(), userID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get payment history", "user_id", userIDParam, "error", err)
		RespondInternalError(c)
		return
	}

	payments := make([]PaymentResponse, 0, len(history.Entries))
	for _, entry := range history.Entries {
		payments = append(payments, mapEntryToPaymentResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, payments, pagination.Page, pagination.PerPage, int(history.Total))
}

// mapEntryToPaymentResponse maps a ledger entry to a payment response DTO
func mapEntryToPaymentResponse(entry *ledger.Entry) PaymentResponse {
	resp := PaymentResponse{
		PaymentID: entry.ID.String(),
		Type:      string(entry.Type),
		Amount:    entry.Amount,
		Status:    string(entry.Status),
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.SessionID != nil {
		resp.SessionID = entry.SessionID.String()
	}
	if entry.FromAccount != nil {
		resp.FromAccount = entry.FromAccount.String()
	}
	if entry.ToAccount != nil {
		resp.ToAccount = entry.ToAccount.String()
	}
	return resp
}
