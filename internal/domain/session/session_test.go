package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	userID := uuid.New()
	contentID := uuid.New()

	sess := New(userID, contentID, 3000, 200)

	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, contentID, sess.ContentID)
	assert.Equal(t, StatusLocked, sess.Status)
	assert.Equal(t, int64(3000), sess.LockedAmount)
	assert.Equal(t, int64(200), sess.PricePerMinute)
	assert.Equal(t, 1, sess.Version)
	assert.Nil(t, sess.StartTime)
	assert.Nil(t, sess.AmountPaid)
	assert.True(t, sess.IsOpen())
}

func TestSession_Start(t *testing.T) {
	t.Run("FromLocked", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		now := time.Now().UTC()

		err := sess.Start(now)

		require.NoError(t, err)
		assert.Equal(t, StatusActive, sess.Status)
		require.NotNil(t, sess.StartTime)
		assert.Equal(t, now, *sess.StartTime)
		assert.Equal(t, 2, sess.Version)
		assert.True(t, sess.IsOpen())
	})

	t.Run("FromActiveFails", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		require.NoError(t, sess.Start(time.Now().UTC()))

		err := sess.Start(time.Now().UTC())

		var mismatch ErrStateMismatch
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, StatusActive, mismatch.Actual)
		assert.Equal(t, StatusActive, sess.Status, "session must be left unchanged")
		assert.Equal(t, 2, sess.Version)
	})

	t.Run("FromCompletedFails", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		require.NoError(t, sess.Start(time.Now().UTC()))
		require.NoError(t, sess.Settle(60, time.Now().UTC()))

		err := sess.Start(time.Now().UTC())
		assert.ErrorIs(t, err, ErrStateMismatch{})
	})
}

func TestSession_CurrentCost(t *testing.T) {
	t.Run("LockedAccruesNothing", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		assert.Equal(t, int64(0), sess.CurrentCost(time.Now().UTC()))
	})

	t.Run("ActiveAccruesByElapsedTime", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		start := time.Now().UTC()
		require.NoError(t, sess.Start(start))

		// 10 minutes in at 200 per minute.
		assert.Equal(t, int64(2000), sess.CurrentCost(start.Add(10*time.Minute)))
	})

	t.Run("ActiveIsCappedAtLockedAmount", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		start := time.Now().UTC()
		require.NoError(t, sess.Start(start))

		assert.Equal(t, int64(3000), sess.CurrentCost(start.Add(24*time.Hour)))
	})

	t.Run("CompletedReportsAmountPaid", func(t *testing.T) {
		sess := New(uuid.New(), uuid.New(), 3000, 200)
		start := time.Now().UTC()
		require.NoError(t, sess.Start(start))
		require.NoError(t, sess.Settle(600, start.Add(10*time.Minute)))

		assert.Equal(t, *sess.AmountPaid, sess.CurrentCost(start.Add(time.Hour)))
	})
}

func TestCalculateCharge(t *testing.T) {
	tests := []struct {
		name            string
		durationSeconds int64
		pricePerMinute  int64
		want            int64
	}{
		{"TenMinutesAtTwoPerMinute", 600, 200, 2000},
		{"FortyMinutesAtTwoPerMinute", 2400, 200, 8000},
		{"ZeroDuration", 0, 200, 0},
		{"NegativeDuration", -500, 200, 0},
		{"SubMinuteRoundsHalfUp", 30, 100, 50},
		{"OneSecond", 1, 100, 2},
		{"ZeroPrice", 600, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateCharge(tt.durationSeconds, tt.pricePerMinute))
		})
	}
}

func TestSession_Settle(t *testing.T) {
	newActive := func(locked, ppm int64) *Session {
		sess := New(uuid.New(), uuid.New(), locked, ppm)
		require.NoError(t, sess.Start(time.Now().UTC()))
		return sess
	}

	t.Run("PartialUsageRefundsRemainder", func(t *testing.T) {
		// Lock 30.00 at 2.00/min, watch 10 minutes: charge 20.00, refund 10.00.
		sess := newActive(3000, 200)
		now := time.Now().UTC()

		err := sess.Settle(600, now)

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, sess.Status)
		assert.Equal(t, int64(600), *sess.DurationSeconds)
		assert.Equal(t, int64(2000), *sess.FinalCost)
		assert.Equal(t, int64(2000), *sess.AmountPaid)
		assert.Equal(t, int64(1000), *sess.AmountRefunded)
		assert.Equal(t, now, *sess.EndTime)
		assert.False(t, sess.IsOpen())
	})

	t.Run("ChargeCappedAtLockedAmount", func(t *testing.T) {
		// 40 minutes would cost 80.00 but only 30.00 was locked.
		sess := newActive(3000, 200)

		err := sess.Settle(2400, time.Now().UTC())

		require.NoError(t, err)
		assert.Equal(t, int64(8000), *sess.FinalCost)
		assert.Equal(t, int64(3000), *sess.AmountPaid)
		assert.Equal(t, int64(0), *sess.AmountRefunded)
	})

	t.Run("NegativeDurationFullyRefunded", func(t *testing.T) {
		sess := newActive(3000, 200)

		err := sess.Settle(-120, time.Now().UTC())

		require.NoError(t, err)
		assert.Equal(t, int64(0), *sess.DurationSeconds)
		assert.Equal(t, int64(0), *sess.AmountPaid)
		assert.Equal(t, int64(3000), *sess.AmountRefunded)
	})

	t.Run("LockedToCompletedIsZeroDuration", func(t *testing.T) {
		// Tab closed before start was ever called: full refund regardless of
		// the claimed duration.
		sess := New(uuid.New(), uuid.New(), 3000, 200)

		err := sess.Settle(900, time.Now().UTC())

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, sess.Status)
		assert.Equal(t, int64(0), *sess.DurationSeconds)
		assert.Equal(t, int64(0), *sess.AmountPaid)
		assert.Equal(t, int64(3000), *sess.AmountRefunded)
	})

	t.Run("AlreadyCompletedFails", func(t *testing.T) {
		sess := newActive(3000, 200)
		require.NoError(t, sess.Settle(600, time.Now().UTC()))
		paid := *sess.AmountPaid

		err := sess.Settle(1200, time.Now().UTC())

		assert.ErrorIs(t, err, ErrStateMismatch{})
		assert.Equal(t, paid, *sess.AmountPaid, "figures must not change")
	})

	t.Run("Conservation", func(t *testing.T) {
		durations := []int64{0, 1, 59, 60, 61, 600, 899, 900, 901, 100000, -7}
		for _, d := range durations {
			sess := newActive(3000, 200)
			require.NoError(t, sess.Settle(d, time.Now().UTC()))
			assert.Equal(t, sess.LockedAmount, *sess.AmountPaid+*sess.AmountRefunded,
				"paid + refunded must equal locked for duration %d", d)
			assert.GreaterOrEqual(t, *sess.AmountPaid, int64(0))
			assert.GreaterOrEqual(t, *sess.AmountRefunded, int64(0))
		}
	})
}
