package session

import (
	"time"

	"github.com/google/uuid"
)

// Status defines the lifecycle state of a metered session. The state machine
// is strictly forward-only: locked -> active -> completed. The only permitted
// skip is locked -> completed, for sessions terminated before playback ever
// started (settled as zero duration, fully refunded).
type Status string

const (
	StatusLocked    Status = "locked"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session represents one metered viewing attempt. It is created when a lock
// succeeds, mutated exactly twice (start, settle) and never deleted: completed
// sessions form the session-history audit trail.
type Session struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	ContentID      uuid.UUID `json:"content_id"`
	Status         Status    `json:"status"`
	LockedAmount   int64     `json:"locked_amount"`    // Minor units, fixed at creation
	PricePerMinute int64     `json:"price_per_minute"` // Minor units, fixed at creation

	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Populated only after settlement
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
	FinalCost       *int64 `json:"final_cost,omitempty"`
	AmountPaid      *int64 `json:"amount_paid,omitempty"`
	AmountRefunded  *int64 `json:"amount_refunded,omitempty"`

	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session in the locked state with its pricing fixed for life.
func New(userID, contentID uuid.UUID, lockedAmount, pricePerMinute int64) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             uuid.New(),
		UserID:         userID,
		ContentID:      contentID,
		Status:         StatusLocked,
		LockedAmount:   lockedAmount,
		PricePerMinute: pricePerMinute,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsOpen reports whether the session still holds locked funds.
func (s *Session) IsOpen() bool {
	return s.Status == StatusLocked || s.Status == StatusActive
}

// Start transitions the session from locked to active and records the start
// of metering. Any other prior state is a state mismatch.
func (s *Session) Start(now time.Time) error {
	if s.Status != StatusLocked {
		return ErrStateMismatch{SessionID: s.ID, Expected: StatusLocked, Actual: s.Status}
	}
	s.Status = StatusActive
	s.StartTime = &now
	s.UpdatedAt = now
	s.Version++
	return nil
}

// CalculateCharge computes the duration-based cost in minor units, rounded
// half-up. Negative durations are billed as zero.
func CalculateCharge(durationSeconds int64, pricePerMinute int64) int64 {
	if durationSeconds <= 0 || pricePerMinute <= 0 {
		return 0
	}
	return (durationSeconds*pricePerMinute + 30) / 60
}

// CurrentCost reports the cost accrued by the session so far, capped at the
// locked amount. Locked sessions have accrued nothing yet; completed sessions
// report what was actually paid.
func (s *Session) CurrentCost(now time.Time) int64 {
	switch s.Status {
	case StatusActive:
		if s.StartTime == nil {
			return 0
		}
		cost := CalculateCharge(int64(now.Sub(*s.StartTime).Seconds()), s.PricePerMinute)
		if cost > s.LockedAmount {
			cost = s.LockedAmount
		}
		return cost
	case StatusCompleted:
		if s.AmountPaid != nil {
			return *s.AmountPaid
		}
	}
	return 0
}

// Settle transitions the session to completed and fixes its settlement
// figures. The charge never exceeds the locked amount and the refund is the
// exact remainder, so amount_paid + amount_refunded == locked_amount always.
//
// Settling from the locked state (start was never called) is permitted and
// treated as a zero-duration session: fully refunded.
func (s *Session) Settle(durationSeconds int64, now time.Time) error {
	if s.Status != StatusLocked && s.Status != StatusActive {
		return ErrStateMismatch{SessionID: s.ID, Expected: StatusActive, Actual: s.Status}
	}

	if durationSeconds < 0 {
		durationSeconds = 0
	}
	if s.Status == StatusLocked {
		// Abrupt termination before start: nothing was watched.
		durationSeconds = 0
	}

	finalCost := CalculateCharge(durationSeconds, s.PricePerMinute)
	paid := finalCost
	if paid > s.LockedAmount {
		paid = s.LockedAmount
	}
	refund := s.LockedAmount - paid

	s.Status = StatusCompleted
	s.EndTime = &now
	s.DurationSeconds = &durationSeconds
	s.FinalCost = &finalCost
	s.AmountPaid = &paid
	s.AmountRefunded = &refund
	s.UpdatedAt = now
	s.Version++
	return nil
}
