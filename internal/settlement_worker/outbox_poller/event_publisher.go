package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streampay-settlement-engine/internal/domain/ledger"
	"github.com/streampay-settlement-engine/internal/domain/outbox"
	"github.com/streampay-settlement-engine/internal/domain/shared"
	"github.com/streampay-settlement-engine/internal/platform/messaging/producers"
)

// EventPublisher pushes one outbox message out to Kafka
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	ledgerRepo ledger.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	ledgerRepo ledger.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		ledgerRepo: ledgerRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent re-ensures the ledger entries for the settlement, publishes
// the event to Kafka and marks the outbox row processed. Each step is
// idempotent, so a crash between any two of them is repaired on the next
// poll cycle.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetSettlementEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal settlement event from outbox payload",
			"outbox_id", message.ID, "session_id", message.SessionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.ensureLedgerEntries(ctx, event); err != nil {
		logger.Error("Failed to ensure ledger entries before publishing",
			"outbox_id", message.ID, "session_id", event.SessionID, "error", err)
		return fmt.Errorf("failed to ensure ledger entries for session %s: %w", event.SessionID, err)
	}

	if err := p.producer.Publish(ctx, event.SessionID.String(), event); err != nil {
		logger.Error("Failed to publish settlement event to Kafka",
			"outbox_id", message.ID, "session_id", event.SessionID, "error", err)
		return fmt.Errorf("failed to publish settlement event for session %s: %w", event.SessionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "session_id", event.SessionID, "error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", event.SessionID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "session_id", event.SessionID)
	return nil
}

// ensureLedgerEntries writes the charge/refund entries for a settlement if
// the settling process crashed before appending them. Best-effort events
// have no server-side session, so there is nothing to ensure.
func (p *EventPublisherImpl) ensureLedgerEntries(ctx context.Context, event *shared.SettlementEvent) error {
	if event.BestEffort {
		return nil
	}

	if event.AmountCharged > 0 {
		entry, err := ledger.NewCharge(event.SessionID, event.UserID, event.AmountCharged, event.CorrelationID)
		if err != nil {
			return err
		}
		if err := p.ledgerRepo.Append(ctx, entry); err != nil && !errors.Is(err, ledger.ErrDuplicateEntry{}) {
			return err
		}
	}

	if event.AmountRefunded > 0 {
		entry, err := ledger.NewRefund(event.SessionID, event.UserID, event.AmountRefunded, event.CorrelationID)
		if err != nil {
			return err
		}
		if err := p.ledgerRepo.Append(ctx, entry); err != nil && !errors.Is(err, ledger.ErrDuplicateEntry{}) {
			return err
		}
	}

	return nil
}
