// Package mongo provides MongoDB implementations of the ledger and audit
// repositories. The ledger collection is the append-only source of truth for
// all money movement; balances are derived from it by aggregation.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/streampay-settlement-engine/internal/domain/ledger"
)

const (
	// LedgerCollectionName is the name of the ledger collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

// LedgerRepository implements the ledger.Repository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new ledger entry. Session-correlated entries are checked for
// a (session_id, entry_type) duplicate first, which makes settlement retries
// idempotent. Deposits carry no session and are always appended.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	if entry.SessionID != nil {
		filter := bson.M{"session_id": *entry.SessionID, "entry_type": entry.Type}
		count, err := collection.CountDocuments(ctx, filter)
		if err != nil {
			r.logger.Error("Failed to check for existing ledger entry",
				"session_id", entry.SessionID.String(),
				"entry_type", string(entry.Type),
				"error", err)
			return fmt.Errorf("failed to check for existing ledger entry: %w", err)
		}
		if count > 0 {
			return ledger.ErrDuplicateEntry{SessionID: *entry.SessionID, Type: entry.Type}
		}
	}

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		// Two writers can race past the count check; the unique index
		// decides, and the loser gets the same duplicate error as the fast
		// path so callers treat both outcomes alike.
		if dup := duplicateEntryError(entry, err); dup != nil {
			return dup
		}
		r.logger.Error("Failed to append ledger entry",
			"entry_id", entry.ID.String(),
			"entry_type", string(entry.Type),
			"error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// duplicateEntryError translates a unique-index violation on insert into the
// domain duplicate error. Returns nil for any other error.
func duplicateEntryError(entry *ledger.Entry, err error) error {
	if entry.SessionID == nil || !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return ledger.ErrDuplicateEntry{SessionID: *entry.SessionID, Type: entry.Type}
}

// GetBySessionID retrieves all entries correlated with a session, oldest
// first. Returns ErrEntryNotFound when the session has no entries at all.
func (r *LedgerRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"session_id": sessionID}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries by session",
			"session_id", sessionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries by session: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"session_id", sessionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	if len(entries) == 0 {
		return nil, ledger.ErrEntryNotFound{SessionID: sessionID}
	}

	return entries, nil
}

// accountFilter matches entries where the account appears on either side.
func accountFilter(accountID uuid.UUID) bson.M {
	return bson.M{
		"$or": []bson.M{
			{"from_account": accountID},
			{"to_account": accountID},
		},
	}
}

// GetByAccount retrieves paginated ledger entries touching an account.
// Results are sorted by creation time in descending order (newest first).
func (r *LedgerRepository) GetByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, accountFilter(accountID), opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	return entries, nil
}

// CountByAccount counts the total number of ledger entries touching an account
func (r *LedgerRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	count, err := collection.CountDocuments(ctx, accountFilter(accountID))
	if err != nil {
		r.logger.Error("Failed to count ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// SumDeposits totals all deposit entries credited to the account
func (r *LedgerRepository) SumDeposits(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.sumAmounts(ctx, bson.M{"to_account": accountID, "entry_type": ledger.EntryTypeDeposit})
}

// SumCharges totals all charge entries debited from the account
func (r *LedgerRepository) SumCharges(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.sumAmounts(ctx, bson.M{"from_account": accountID, "entry_type": ledger.EntryTypeCharge})
}

// SumRefunds totals all refund entries credited back to the account
func (r *LedgerRepository) SumRefunds(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.sumAmounts(ctx, bson.M{"to_account": accountID, "entry_type": ledger.EntryTypeRefund})
}

// sumAmounts runs a $group aggregation totalling the amount field over the
// filtered entries. An empty result set sums to zero.
func (r *LedgerRepository) sumAmounts(ctx context.Context, filter bson.M) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate ledger amounts", "error", err)
		return 0, fmt.Errorf("failed to aggregate ledger amounts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode ledger aggregation: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes the repository
// relies on. The partial unique index on (session_id, entry_type) backs the
// duplicate guard in Append against concurrent writers.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(LedgerCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "entry_type", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"session_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "from_account", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "to_account", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	return nil
}
