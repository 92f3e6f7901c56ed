package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/streampay-settlement-engine/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the settlement audit collection
	AuditCollectionName = "settlement_audits"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record upserts the audit record keyed by session ID, so Kafka redeliveries
// of the same event do not accumulate duplicates.
func (r *AuditRepository) Record(ctx context.Context, rec *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"session_id": rec.SessionID}
	update := bson.M{"$set": rec}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		r.logger.Error("Failed to record settlement audit",
			"session_id", rec.SessionID.String(),
			"error", err)
		return fmt.Errorf("failed to record settlement audit: %w", err)
	}

	return nil
}
