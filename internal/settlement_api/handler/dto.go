package handler

// DepositRequest represents a request to credit a wallet
type DepositRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// DepositResponse represents the receipt of a wallet deposit
type DepositResponse struct {
	PaymentID  string `json:"payment_id"`
	UserID     string `json:"user_id"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
	CreatedAt  string `json:"created_at"`
}

// BalanceResponse represents a derived wallet balance
type BalanceResponse struct {
	UserID        string `json:"user_id"`
	Balance       int64  `json:"balance"`
	TotalDeposits int64  `json:"total_deposits"`
	TotalCharges  int64  `json:"total_charges"`
	TotalRefunds  int64  `json:"total_refunds"`
}

// PaymentResponse represents one ledger entry in a payment history page
type PaymentResponse struct {
	PaymentID   string `json:"payment_id"`
	SessionID   string `json:"session_id,omitempty"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	FromAccount string `json:"from_account,omitempty"`
	ToAccount   string `json:"to_account,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// CreateSessionRequest represents a request to lock funds for a session
type CreateSessionRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	ContentID string `json:"content_id" binding:"required,uuid"`
}

// SessionCreatedResponse represents a freshly locked session
type SessionCreatedResponse struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id"`
	ContentID      string `json:"content_id"`
	LockedAmount   int64  `json:"locked_amount"`
	PricePerMinute int64  `json:"price_per_minute"`
	CreatedAt      string `json:"created_at"`
}

// StartSessionRequest identifies the user starting playback
type StartSessionRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// SessionStartedResponse represents an activated session
type SessionStartedResponse struct {
	SessionID string `json:"session_id"`
	StartTime string `json:"start_time"`
}

// EndSessionRequest represents a request to settle a session
type EndSessionRequest struct {
	UserID          string `json:"user_id" binding:"required,uuid"`
	DurationSeconds int64  `json:"duration_seconds" binding:"min=0"`
}

// SessionEndedResponse represents the settlement outcome
type SessionEndedResponse struct {
	SessionID     string `json:"session_id"`
	AmountCharged int64  `json:"amount_charged"`
	Refund        int64  `json:"refund"`
	FinalBalance  int64  `json:"final_balance"`
}

// EndSignalRequest is the disconnect beacon payload. Locked amount and price
// are client-claimed fallbacks for when the session cannot be resolved.
type EndSignalRequest struct {
	UserID          string `json:"user_id" binding:"required,uuid"`
	SessionID       string `json:"session_id" binding:"required,uuid"`
	DurationSeconds int64  `json:"duration_seconds" binding:"min=0"`
	LockedAmount    *int64 `json:"locked_amount,omitempty"`
	PricePerMinute  *int64 `json:"price_per_minute,omitempty"`
}

// EndSignalResponse represents the best-guess settlement figures
type EndSignalResponse struct {
	SessionID     string `json:"session_id"`
	AmountCharged int64  `json:"amount_charged"`
	Refund        int64  `json:"refund"`
	BestEffort    bool   `json:"best_effort"`
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	ContentID       string `json:"content_id"`
	Status          string `json:"status"`
	LockedAmount    int64  `json:"locked_amount"`
	PricePerMinute  int64  `json:"price_per_minute"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
	FinalCost       *int64 `json:"final_cost,omitempty"`
	AmountPaid      *int64 `json:"amount_paid,omitempty"`
	AmountRefunded  *int64 `json:"amount_refunded,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ActiveSessionResponse is the open-session view, including the cost the
// session has accrued so far
type ActiveSessionResponse struct {
	SessionResponse
	CurrentCost int64 `json:"current_cost"`
}

// PricingResponse represents a content pricing quote
type PricingResponse struct {
	ContentID      string  `json:"content_id"`
	ProviderID     string  `json:"provider_id"`
	Title          string  `json:"title"`
	Rating         float64 `json:"rating"`
	PricePerMinute int64   `json:"price_per_minute"`
	LockAmount     int64   `json:"lock_amount"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
