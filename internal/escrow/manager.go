// Package escrow coordinates the money flow of a metered session: locking
// funds at creation, starting metering, and settling the lock into a charge
// and a refund. All state transitions commit through Postgres with the
// settlement event written to the outbox in the same transaction; ledger
// entries are appended afterwards and deduplicated, so retries and crashes
// never double-move money.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/streampay-settlement-engine/internal/domain/content"
	"github.com/streampay-settlement-engine/internal/domain/ledger"
	"github.com/streampay-settlement-engine/internal/domain/outbox"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/domain/shared"
	"github.com/streampay-settlement-engine/internal/pricing"
	"github.com/streampay-settlement-engine/internal/wallet"
)

// QuoteResolver resolves content pricing at lock time.
type QuoteResolver interface {
	Resolve(ctx context.Context, contentID uuid.UUID) (*pricing.Quote, error)
}

// BalanceReader derives a user's available balance from the ledger.
type BalanceReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (*wallet.Balance, error)
}

// TxRunner executes a function inside a Postgres transaction.
// Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// ErrInsufficientBalance rejects a lock the user cannot cover
type ErrInsufficientBalance struct {
	UserID    uuid.UUID
	Required  int64
	Available int64
}

func (e ErrInsufficientBalance) Error() string {
	return "insufficient balance: required " + strconv.FormatInt(e.Required, 10) +
		", available " + strconv.FormatInt(e.Available, 10)
}

// Is implements the errors.Is interface for ErrInsufficientBalance
func (e ErrInsufficientBalance) Is(target error) bool {
	_, ok := target.(ErrInsufficientBalance)
	return ok
}

// LockResult confirms a successful funds lock.
type LockResult struct {
	SessionID      uuid.UUID `json:"session_id"`
	UserID         uuid.UUID `json:"user_id"`
	ContentID      uuid.UUID `json:"content_id"`
	LockedAmount   int64     `json:"locked_amount"`
	PricePerMinute int64     `json:"price_per_minute"`
	CreatedAt      time.Time `json:"created_at"`
}

// SettleResult carries the final figures of a settled session.
type SettleResult struct {
	SessionID       uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"user_id"`
	DurationSeconds int64     `json:"duration_seconds"`
	FinalCost       int64     `json:"final_cost"`
	AmountCharged   int64     `json:"amount_charged"`
	AmountRefunded  int64     `json:"amount_refunded"`
	BestEffort      bool      `json:"best_effort"`

	// AlreadySettled is true when the session had been settled before this
	// call; the figures are the original ones and nothing was written.
	AlreadySettled bool `json:"already_settled"`
}

// DetachedSignal is a client-side termination beacon. The claimed figures are
// only trusted when the referenced session cannot be resolved server-side.
type DetachedSignal struct {
	UserID          uuid.UUID
	SessionID       uuid.UUID
	DurationSeconds int64
	LockedAmount    *int64
	PricePerMinute  *int64
	CorrelationID   string
}

// Manager orchestrates locks and settlements.
type Manager struct {
	sessions session.Repository
	contents content.Repository
	entries  ledger.Repository
	outbox   outbox.Repository
	resolver QuoteResolver
	balances BalanceReader
	db       TxRunner
	logger   *slog.Logger
}

// NewManager wires the escrow manager.
func NewManager(
	logger *slog.Logger,
	db TxRunner,
	sessions session.Repository,
	contents content.Repository,
	entries ledger.Repository,
	outboxRepo outbox.Repository,
	resolver QuoteResolver,
	balances BalanceReader,
) *Manager {
	return &Manager{
		sessions: sessions,
		contents: contents,
		entries:  entries,
		outbox:   outboxRepo,
		resolver: resolver,
		balances: balances,
		db:       db,
		logger:   logger,
	}
}

// Lock resolves pricing, checks the derived balance and creates a locked
// session with a matching lock entry. The open-session guard is enforced both
// by the early read and, authoritatively, by the database unique constraint
// on session creation.
func (m *Manager) Lock(ctx context.Context, userID, contentID uuid.UUID, correlationID string) (*LockResult, error) {
	open, err := m.sessions.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, session.ErrSessionAlreadyActive{UserID: userID}
	}

	quote, err := m.resolver.Resolve(ctx, contentID)
	if err != nil {
		return nil, err
	}

	balance, err := m.balances.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Available < quote.LockAmount {
		return nil, ErrInsufficientBalance{
			UserID:    userID,
			Required:  quote.LockAmount,
			Available: balance.Available,
		}
	}

	sess := session.New(userID, contentID, quote.LockAmount, quote.PricePerMinute)
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	lockEntry, err := ledger.NewLock(sess.ID, userID, quote.LockAmount, correlationID)
	if err != nil {
		return nil, err
	}
	if err := m.entries.Append(ctx, lockEntry); err != nil && !errors.Is(err, ledger.ErrDuplicateEntry{}) {
		// The session row is already committed and lock entries never feed
		// the derived balance, so a failed append must not strand the caller
		// with an open session it was never told about.
		m.logger.Warn("Failed to record lock entry",
			"session_id", sess.ID.String(),
			"user_id", userID.String(),
			"error", err)
	}

	m.logger.Info("Funds locked for session",
		"session_id", sess.ID.String(),
		"user_id", userID.String(),
		"locked_amount", quote.LockAmount,
		"price_per_minute", quote.PricePerMinute)

	return &LockResult{
		SessionID:      sess.ID,
		UserID:         userID,
		ContentID:      contentID,
		LockedAmount:   quote.LockAmount,
		PricePerMinute: quote.PricePerMinute,
		CreatedAt:      sess.CreatedAt,
	}, nil
}

// Start transitions a locked session to active and begins metering.
func (m *Manager) Start(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	sess, err := m.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if err := sess.Start(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := m.sessions.Update(ctx, sess); err != nil {
		if errors.Is(err, session.ErrConcurrentModification{}) {
			// Someone else transitioned it first; report the actual state.
			current, readErr := m.sessions.GetByID(ctx, sessionID)
			if readErr == nil {
				return nil, session.ErrStateMismatch{
					SessionID: sessionID,
					Expected:  session.StatusLocked,
					Actual:    current.Status,
				}
			}
		}
		return nil, err
	}

	return sess, nil
}

// Get returns the session if it exists and belongs to the user.
func (m *Manager) Get(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	return m.ownedSession(ctx, sessionID, userID)
}

// GetOpenByUser returns the user's open session. This is the recovery path
// for clients that lost the session ID and need to end the session to free
// its locked funds. Reports ErrSessionNotFound when nothing is open.
func (m *Manager) GetOpenByUser(ctx context.Context, userID uuid.UUID) (*session.Session, error) {
	open, err := m.sessions.GetOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, session.ErrSessionNotFound{}
	}
	return open, nil
}

// Settle ends a session and resolves its lock into a charge and a refund.
// Settlement is idempotent per session: a completed session returns its
// original figures and writes nothing.
func (m *Manager) Settle(ctx context.Context, sessionID, userID uuid.UUID, durationSeconds int64, correlationID string) (*SettleResult, error) {
	sess, err := m.ownedSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	return m.settle(ctx, sess, durationSeconds, false, correlationID)
}

// ForceSettle terminates a stuck session with zero charge and a full refund.
// Used by the reconciliation sweeper; already-completed sessions are a no-op.
func (m *Manager) ForceSettle(ctx context.Context, sessionID uuid.UUID) (*SettleResult, error) {
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Status == session.StatusCompleted {
		return resultFromSession(sess, false, true), nil
	}

	// Force the zero-duration path regardless of how long the session ran:
	// no trustworthy end signal ever arrived, so nothing is charged.
	sess.Status = session.StatusLocked
	result, err := m.settle(ctx, sess, 0, false, "")
	if err != nil {
		return nil, err
	}

	if !result.AlreadySettled {
		m.logger.Warn("Force-settled stuck session",
			"session_id", sessionID.String(),
			"user_id", sess.UserID.String(),
			"amount_refunded", result.AmountRefunded)
	}
	return result, nil
}

// SettleDetached handles the best-effort termination beacon. When the session
// resolves server-side the normal settlement path runs with server figures.
// When it does not, the client-claimed figures are used, the event is flagged
// best_effort for audit, and no ledger or session state is touched. The
// method never fails from the caller's point of view.
func (m *Manager) SettleDetached(ctx context.Context, signal DetachedSignal) *SettleResult {
	sess, err := m.sessions.GetByID(ctx, signal.SessionID)
	if err == nil && sess.UserID == signal.UserID {
		result, settleErr := m.settle(ctx, sess, signal.DurationSeconds, false, signal.CorrelationID)
		if settleErr == nil {
			return result
		}
		m.logger.Warn("Detached settlement failed on resolved session, falling back to claimed figures",
			"session_id", signal.SessionID.String(),
			"error", settleErr)
	} else if err != nil && !errors.Is(err, session.ErrSessionNotFound{}) {
		m.logger.Warn("Detached settlement could not resolve session",
			"session_id", signal.SessionID.String(),
			"error", err)
	}

	return m.settleFromClaims(ctx, signal)
}

// settleFromClaims computes degraded-trust figures from what the client
// claims and publishes a flagged event for the audit trail.
func (m *Manager) settleFromClaims(ctx context.Context, signal DetachedSignal) *SettleResult {
	var lockedAmount, pricePerMinute int64
	if signal.LockedAmount != nil {
		lockedAmount = *signal.LockedAmount
	}
	if signal.PricePerMinute != nil {
		pricePerMinute = *signal.PricePerMinute
	}
	if lockedAmount < 0 {
		lockedAmount = 0
	}

	finalCost := session.CalculateCharge(signal.DurationSeconds, pricePerMinute)
	charged := finalCost
	if charged > lockedAmount {
		charged = lockedAmount
	}
	refunded := lockedAmount - charged

	result := &SettleResult{
		SessionID:       signal.SessionID,
		UserID:          signal.UserID,
		DurationSeconds: signal.DurationSeconds,
		FinalCost:       finalCost,
		AmountCharged:   charged,
		AmountRefunded:  refunded,
		BestEffort:      true,
	}

	event := &shared.SettlementEvent{
		SessionID:       signal.SessionID,
		UserID:          signal.UserID,
		AmountCharged:   charged,
		AmountRefunded:  refunded,
		DurationSeconds: signal.DurationSeconds,
		BestEffort:      true,
		CorrelationID:   signal.CorrelationID,
		SettledAt:       time.Now().UTC(),
	}
	msg, err := outbox.NewMessage(event)
	if err != nil {
		m.logger.Error("Failed to build best-effort settlement event", "error", err)
		return result
	}
	if err := m.outbox.Create(ctx, msg); err != nil {
		m.logger.Error("Failed to enqueue best-effort settlement event",
			"session_id", signal.SessionID.String(),
			"error", err)
	}

	return result
}

// settle commits the completed transition and the outbox event atomically,
// then appends the charge/refund entries. A concurrent-modification loss is
// resolved by re-reading: if the winner completed the session, its figures
// are returned as an idempotent success.
func (m *Manager) settle(ctx context.Context, sess *session.Session, durationSeconds int64, bestEffort bool, correlationID string) (*SettleResult, error) {
	if sess.Status == session.StatusCompleted {
		return resultFromSession(sess, bestEffort, true), nil
	}

	if err := sess.Settle(durationSeconds, time.Now().UTC()); err != nil {
		return nil, err
	}

	event := m.buildEvent(ctx, sess, bestEffort, correlationID)
	msg, err := outbox.NewMessage(event)
	if err != nil {
		return nil, fmt.Errorf("failed to build settlement event: %w", err)
	}

	err = m.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := m.sessions.WithTx(tx).Update(ctx, sess); err != nil {
			return err
		}
		return m.outbox.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, session.ErrConcurrentModification{}) {
			current, readErr := m.sessions.GetByID(ctx, sess.ID)
			if readErr == nil && current.Status == session.StatusCompleted {
				return resultFromSession(current, bestEffort, true), nil
			}
		}
		return nil, err
	}

	m.appendSettlementEntries(ctx, sess, correlationID)

	m.logger.Info("Session settled",
		"session_id", sess.ID.String(),
		"user_id", sess.UserID.String(),
		"duration_seconds", *sess.DurationSeconds,
		"amount_paid", *sess.AmountPaid,
		"amount_refunded", *sess.AmountRefunded)

	return resultFromSession(sess, bestEffort, false), nil
}

// appendSettlementEntries writes the charge and refund entries for a settled
// session. Duplicates are ignored and transient failures only logged: the
// outbox event publisher re-ensures the entries before publishing.
func (m *Manager) appendSettlementEntries(ctx context.Context, sess *session.Session, correlationID string) {
	if paid := *sess.AmountPaid; paid > 0 {
		entry, err := ledger.NewCharge(sess.ID, sess.UserID, paid, correlationID)
		if err == nil {
			err = m.entries.Append(ctx, entry)
		}
		if err != nil && !errors.Is(err, ledger.ErrDuplicateEntry{}) {
			m.logger.Warn("Failed to append charge entry, publisher will retry",
				"session_id", sess.ID.String(), "error", err)
		}
	}
	if refunded := *sess.AmountRefunded; refunded > 0 {
		entry, err := ledger.NewRefund(sess.ID, sess.UserID, refunded, correlationID)
		if err == nil {
			err = m.entries.Append(ctx, entry)
		}
		if err != nil && !errors.Is(err, ledger.ErrDuplicateEntry{}) {
			m.logger.Warn("Failed to append refund entry, publisher will retry",
				"session_id", sess.ID.String(), "error", err)
		}
	}
}

// buildEvent assembles the settlement event, resolving the provider for
// attribution. A missing provider never blocks settlement.
func (m *Manager) buildEvent(ctx context.Context, sess *session.Session, bestEffort bool, correlationID string) *shared.SettlementEvent {
	var providerID uuid.UUID
	if c, err := m.contents.GetByID(ctx, sess.ContentID); err == nil {
		providerID = c.ProviderID
	} else {
		m.logger.Warn("Could not resolve provider for settlement event",
			"content_id", sess.ContentID.String(), "error", err)
	}

	return &shared.SettlementEvent{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		ContentID:       sess.ContentID,
		ProviderID:      providerID,
		AmountCharged:   chargeFigure(sess),
		AmountRefunded:  refundFigure(sess),
		DurationSeconds: durationFigure(sess),
		BestEffort:      bestEffort,
		CorrelationID:   correlationID,
		SettledAt:       time.Now().UTC(),
	}
}

func (m *Manager) ownedSession(ctx context.Context, sessionID, userID uuid.UUID) (*session.Session, error) {
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		// Do not reveal other users' sessions.
		return nil, session.ErrSessionNotFound{SessionID: sessionID}
	}
	return sess, nil
}

func resultFromSession(sess *session.Session, bestEffort, alreadySettled bool) *SettleResult {
	return &SettleResult{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		DurationSeconds: durationFigure(sess),
		FinalCost:       finalCostFigure(sess),
		AmountCharged:   chargeFigure(sess),
		AmountRefunded:  refundFigure(sess),
		BestEffort:      bestEffort,
		AlreadySettled:  alreadySettled,
	}
}

func chargeFigure(sess *session.Session) int64 {
	if sess.AmountPaid != nil {
		return *sess.AmountPaid
	}
	return 0
}

func refundFigure(sess *session.Session) int64 {
	if sess.AmountRefunded != nil {
		return *sess.AmountRefunded
	}
	return 0
}

func durationFigure(sess *session.Session) int64 {
	if sess.DurationSeconds != nil {
		return *sess.DurationSeconds
	}
	return 0
}

func finalCostFigure(sess *session.Session) int64 {
	if sess.FinalCost != nil {
		return *sess.FinalCost
	}
	return 0
}
