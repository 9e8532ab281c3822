package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovehq/grove/internal/domain"
)

func TestNewCard(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := domain.NewCard(uuid.New(), "spanish", "perro", "dog", now)

	assert.Equal(t, domain.CardInitialEase, c.EaseFactor)
	assert.Equal(t, 0, c.Repetitions)
	assert.Equal(t, 0, c.IntervalDays)
	assert.True(t, c.Due(now), "a fresh card is due immediately")
}

func TestCardReview(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first successful review schedules one day out", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		require.NoError(t, c.Review(4, now))

		assert.Equal(t, 1, c.Repetitions)
		assert.Equal(t, 1, c.IntervalDays)
		assert.Equal(t, now.AddDate(0, 0, 1), c.NextReviewAt)
	})

	t.Run("second successful review schedules six days out", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		require.NoError(t, c.Review(4, now))
		require.NoError(t, c.Review(4, now.AddDate(0, 0, 1)))

		assert.Equal(t, 2, c.Repetitions)
		assert.Equal(t, 6, c.IntervalDays)
	})

	t.Run("third successful review multiplies by ease", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		require.NoError(t, c.Review(5, now))
		require.NoError(t, c.Review(5, now))
		easeBefore := c.EaseFactor
		require.NoError(t, c.Review(5, now))

		assert.Equal(t, 3, c.Repetitions)
		// interval = round(6 * ease at review time)
		assert.InDelta(t, 6*easeBefore, float64(c.IntervalDays), 0.5)
	})

	t.Run("perfect grade raises ease", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		require.NoError(t, c.Review(5, now))

		assert.InDelta(t, 2.6, c.EaseFactor, 1e-9)
	})

	t.Run("barely passing grade lowers ease", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		require.NoError(t, c.Review(3, now))

		assert.InDelta(t, 2.36, c.EaseFactor, 1e-9)
	})

	t.Run("failed review resets streak and schedules tomorrow", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		require.NoError(t, c.Review(5, now))
		require.NoError(t, c.Review(5, now))
		require.NoError(t, c.Review(5, now))
		easeBefore := c.EaseFactor

		require.NoError(t, c.Review(1, now))

		assert.Equal(t, 0, c.Repetitions)
		assert.Equal(t, 1, c.IntervalDays)
		assert.Equal(t, now.AddDate(0, 0, 1), c.NextReviewAt)
		assert.Equal(t, easeBefore, c.EaseFactor, "a failed review leaves the ease factor untouched")
	})

	t.Run("ease never drops below floor", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)
		for i := 0; i < 10; i++ {
			require.NoError(t, c.Review(3, now))
		}

		assert.GreaterOrEqual(t, c.EaseFactor, domain.CardMinEase)
	})

	t.Run("grade out of range rejected", func(t *testing.T) {
		t.Parallel()

		c := domain.NewCard(uuid.New(), "", "q", "a", now)

		assert.ErrorIs(t, c.Review(-1, now), domain.ErrValidation)
		assert.ErrorIs(t, c.Review(6, now), domain.ErrValidation)
		assert.Equal(t, 0, c.Repetitions, "rejected grades must not mutate the card")
	})
}

func TestCardDue(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := domain.NewCard(uuid.New(), "", "q", "a", now)
	require.NoError(t, c.Review(4, now))

	assert.False(t, c.Due(now), "just-reviewed card is not due")
	assert.True(t, c.Due(now.AddDate(0, 0, 2)), "card becomes due after its interval")
}
