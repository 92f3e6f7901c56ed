package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/streampay-settlement-engine/internal/config"
	"github.com/streampay-settlement-engine/internal/domain/session"
	"github.com/streampay-settlement-engine/internal/escrow"
)

// ForceSettler force-settles a single session, charging nothing and refunding
// the full lock. The escrow manager satisfies this.
type ForceSettler interface {
	ForceSettle(ctx context.Context, sessionID uuid.UUID) (*escrow.SettleResult, error)
}

// Sweeper periodically force-settles sessions that have been open past the
// stuck threshold. Sessions like these are usually the residue of a client
// that died without sending any end signal.
type Sweeper struct {
	sessions       session.Repository
	settler        ForceSettler
	pool           *ants.Pool
	logger         *slog.Logger
	sweepInterval  time.Duration
	stuckThreshold time.Duration
	batchSize      int
}

func NewSweeper(
	cfg *config.ReconcilerConfig,
	poolCfg *config.WorkerPoolConfig,
	sessions session.Repository,
	settler ForceSettler,
	logger *slog.Logger,
) (*Sweeper, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("reconciler sweep is disabled: no stuck threshold configured")
	}

	pool, err := ants.NewPool(poolCfg.Size)
	if err != nil {
		return nil, err
	}

	return &Sweeper{
		sessions:       sessions,
		settler:        settler,
		pool:           pool,
		logger:         logger,
		sweepInterval:  cfg.SweepInterval,
		stuckThreshold: cfg.StuckThreshold,
		batchSize:      cfg.BatchSize,
	}, nil
}

// Start runs sweep cycles until the context is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting Reconciler Sweeper",
		"sweep_interval", s.sweepInterval.String(),
		"stuck_threshold", s.stuckThreshold.String(),
		"batch_size", s.batchSize,
	)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciler Sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("Error during reconciliation sweep", "error", err)
			}
		}
	}
}

// sweep force-settles one batch of stuck sessions. Each session is settled on
// its own pool worker; a failure on one session never blocks the others.
func (s *Sweeper) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.stuckThreshold)
	stuck, err := s.sessions.ListStuck(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stuck sessions: %w", err)
	}

	if len(stuck) == 0 {
		s.logger.Debug("No stuck sessions found.")
		return nil
	}

	s.logger.Info("Found stuck sessions to reconcile", "count", len(stuck), "cutoff", cutoff)

	var wg sync.WaitGroup
	for _, sess := range stuck {
		wg.Add(1)
		sessionID := sess.ID
		userID := sess.UserID

		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			result, err := s.settler.ForceSettle(ctx, sessionID)
			if err != nil {
				s.logger.Error("Failed to force-settle stuck session",
					"session_id", sessionID, "user_id", userID, "error", err)
				return
			}
			s.logger.Info("Force-settled stuck session",
				"session_id", sessionID,
				"user_id", userID,
				"amount_refunded", result.AmountRefunded,
				"already_settled", result.AlreadySettled,
			)
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Error("Failed to submit stuck session to worker pool",
				"session_id", sessionID, "error", submitErr)
		}
	}
	wg.Wait()

	return nil
}

// Shutdown releases the worker pool
func (s *Sweeper) Shutdown() {
	s.logger.Info("Shutting down reconciler worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}
