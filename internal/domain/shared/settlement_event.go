package shared

import (
	"time"

	"github.com/google/uuid"
)

// SettlementEvent is the message published to Kafka after a session has been
// settled. Downstream consumers (payout, analytics, the audit recorder) use it
// as their only view into settlement outcomes.
type SettlementEvent struct {
	SessionID       uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"user_id"`
	ContentID       uuid.UUID `json:"content_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	AmountCharged   int64     `json:"amount_charged"` // Minor units
	AmountRefunded  int64     `json:"amount_refunded"`
	DurationSeconds int64     `json:"duration_seconds"`
	BestEffort      bool      `json:"best_effort"` // True for degraded-trust disconnect settlements
	CorrelationID   string    `json:"correlation_id,omitempty"`
	SettledAt       time.Time `json:"settled_at"`
}
