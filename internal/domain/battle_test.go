package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovehq/grove/internal/domain"
)

func TestNewBattle(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		b, err := domain.NewBattle(uuid.New(), nil, 60000, now)
		require.NoError(t, err)

		assert.Equal(t, domain.BattleStatusPending, b.Status)
		assert.Equal(t, int64(60000), b.RemainingMS)
		assert.Nil(t, b.StartedAt)
	})

	t.Run("non-positive duration rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewBattle(uuid.New(), nil, 0, now)
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = domain.NewBattle(uuid.New(), nil, -1000, now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestBattleTransitions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newPending := func(t *testing.T) *domain.Battle {
		t.Helper()
		b, err := domain.NewBattle(uuid.New(), nil, 60000, now)
		require.NoError(t, err)
		return b
	}

	t.Run("start from pending", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))

		assert.Equal(t, domain.BattleStatusRunning, b.Status)
		require.NotNil(t, b.StartedAt)
		assert.Equal(t, now, *b.StartedAt)
	})

	t.Run("start twice conflicts", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))

		assert.ErrorIs(t, b.Start(now), domain.ErrConflict)
	})

	t.Run("pause snapshots remaining", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))
		require.NoError(t, b.Pause(now.Add(10*time.Second)))

		assert.Equal(t, domain.BattleStatusPaused, b.Status)
		assert.Equal(t, int64(50000), b.RemainingMS)
		assert.Nil(t, b.StartedAt)
	})

	t.Run("pause without running conflicts", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		assert.ErrorIs(t, b.Pause(now), domain.ErrConflict)
	})

	t.Run("resume continues from snapshot", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))
		require.NoError(t, b.Pause(now.Add(10*time.Second)))
		require.NoError(t, b.Resume(now.Add(5*time.Minute)))

		assert.Equal(t, domain.BattleStatusRunning, b.Status)
		// The 5 minutes spent paused do not consume countdown time.
		assert.Equal(t, int64(40000), b.RemainingAt(now.Add(5*time.Minute+10*time.Second)))
	})

	t.Run("resume without pause conflicts", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))
		assert.ErrorIs(t, b.Resume(now), domain.ErrConflict)
	})

	t.Run("finish from running returns elapsed", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))

		elapsed, err := b.Finish(now.Add(25 * time.Second))
		require.NoError(t, err)

		assert.Equal(t, int64(25000), elapsed)
		assert.Equal(t, domain.BattleStatusFinished, b.Status)
	})

	t.Run("finish from paused returns elapsed", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))
		require.NoError(t, b.Pause(now.Add(15*time.Second)))

		elapsed, err := b.Finish(now.Add(1 * time.Hour))
		require.NoError(t, err)

		assert.Equal(t, int64(15000), elapsed, "time spent paused is not elapsed battle time")
	})

	t.Run("finish from pending conflicts", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		_, err := b.Finish(now)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("finish twice conflicts", func(t *testing.T) {
		t.Parallel()

		b := newPending(t)
		require.NoError(t, b.Start(now))
		_, err := b.Finish(now.Add(time.Second))
		require.NoError(t, err)

		_, err = b.Finish(now.Add(2 * time.Second))
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestBattleRemainingAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending keeps full duration", func(t *testing.T) {
		t.Parallel()

		b, err := domain.NewBattle(uuid.New(), nil, 60000, now)
		require.NoError(t, err)

		assert.Equal(t, int64(60000), b.RemainingAt(now.Add(time.Hour)))
	})

	t.Run("running counts down", func(t *testing.T) {
		t.Parallel()

		b, err := domain.NewBattle(uuid.New(), nil, 60000, now)
		require.NoError(t, err)
		require.NoError(t, b.Start(now))

		assert.Equal(t, int64(30000), b.RemainingAt(now.Add(30*time.Second)))
	})

	t.Run("clamped at zero past the deadline", func(t *testing.T) {
		t.Parallel()

		b, err := domain.NewBattle(uuid.New(), nil, 60000, now)
		require.NoError(t, err)
		require.NoError(t, b.Start(now))

		assert.Equal(t, int64(0), b.RemainingAt(now.Add(2*time.Minute)))
		assert.True(t, b.Expired(now.Add(2*time.Minute)))
	})

	t.Run("not expired while paused", func(t *testing.T) {
		t.Parallel()

		b, err := domain.NewBattle(uuid.New(), nil, 60000, now)
		require.NoError(t, err)
		require.NoError(t, b.Start(now))
		require.NoError(t, b.Pause(now.Add(time.Second)))

		assert.False(t, b.Expired(now.Add(time.Hour)))
	})
}
