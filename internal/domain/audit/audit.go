// Package audit holds the record type for settlements flagged as
// best-effort. Those settlements were computed from client-claimed figures
// under degraded trust, so they are persisted separately for later review.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/streampay-settlement-engine/internal/domain/shared"
)

// Record is one flagged settlement awaiting review.
type Record struct {
	SessionID       uuid.UUID `json:"session_id" bson:"session_id"`
	UserID          uuid.UUID `json:"user_id" bson:"user_id"`
	ContentID       uuid.UUID `json:"content_id" bson:"content_id"`
	ProviderID      uuid.UUID `json:"provider_id" bson:"provider_id"`
	AmountCharged   int64     `json:"amount_charged" bson:"amount_charged"`
	AmountRefunded  int64     `json:"amount_refunded" bson:"amount_refunded"`
	DurationSeconds int64     `json:"duration_seconds" bson:"duration_seconds"`
	CorrelationID   string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	SettledAt       time.Time `json:"settled_at" bson:"settled_at"`
	RecordedAt      time.Time `json:"recorded_at" bson:"recorded_at"`
}

// FromEvent builds an audit record from a best-effort settlement event.
func FromEvent(event *shared.SettlementEvent) *Record {
	return &Record{
		SessionID:       event.SessionID,
		UserID:          event.UserID,
		ContentID:       event.ContentID,
		ProviderID:      event.ProviderID,
		AmountCharged:   event.AmountCharged,
		AmountRefunded:  event.AmountRefunded,
		DurationSeconds: event.DurationSeconds,
		CorrelationID:   event.CorrelationID,
		SettledAt:       event.SettledAt,
		RecordedAt:      time.Now().UTC(),
	}
}

// Repository persists flagged settlements
type Repository interface {
	// Record stores an audit record, overwriting any earlier record for the
	// same session so redelivered events stay idempotent.
	Record(ctx context.Context, rec *Record) error
}
