package auditor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streampay-settlement-engine/internal/domain/audit"
	"github.com/streampay-settlement-engine/internal/domain/shared"
	"github.com/streampay-settlement-engine/internal/platform/messaging/producers"
)

// SettlementEventHandler consumes settlement events from Kafka and records
// the best-effort ones for later review. Regular settlements already have
// their ledger entries written inline, so only the degraded-trust path needs
// a durable trail.
type SettlementEventHandler struct {
	audits   audit.Repository
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewSettlementEventHandler creates a new handler
func NewSettlementEventHandler(
	logger *slog.Logger,
	audits audit.Repository,
	producer producers.DeadLetterPublisher,
) *SettlementEventHandler {
	return &SettlementEventHandler{
		audits:   audits,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.SettlementEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	if !event.BestEffort {
		logger.Debug("Skipping fully settled event",
			"session_id", event.SessionID.String(),
		)
		return nil
	}

	logger.Info("Received best-effort settlement for audit",
		"session_id", event.SessionID.String(),
		"user_id", event.UserID.String(),
		"amount_charged", event.AmountCharged,
		"amount_refunded", event.AmountRefunded,
	)

	if err := h.audits.Record(ctx, audit.FromEvent(&event)); err != nil {
		logger.Error("Failed to record settlement audit",
			"session_id", event.SessionID.String(),
			"error", err,
		)
		return fmt.Errorf("recording audit for session %s failed: %w", event.SessionID.String(), err)
	}

	logger.Info("Settlement audit recorded", "session_id", event.SessionID.String())
	return nil // Success, commit offset
}
