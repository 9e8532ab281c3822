package domain

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// SM-2 scheduling bounds.
const (
	CardMinEase     = 1.3
	CardInitialEase = 2.5
	CardMinGrade    = 0
	CardMaxGrade    = 5
)

// Card is a spaced-repetition flashcard. Scheduling fields follow the SM-2
// algorithm: EaseFactor shrinks on hard reviews (never below CardMinEase),
// IntervalDays grows 1 -> 6 -> interval*ease on successful reviews.
type Card struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Deck         string
	Front        string
	Back         string
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
	NextReviewAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCard returns a card with fresh SM-2 state, due immediately.
func NewCard(ownerID uuid.UUID, deck, front, back string, now time.Time) *Card {
	return &Card{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Deck:         deck,
		Front:        front,
		Back:         back,
		EaseFactor:   CardInitialEase,
		IntervalDays: 0,
		Repetitions:  0,
		NextReviewAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Review applies one SM-2 review with grade in [0,5]. A grade below 3 resets
// the repetition streak and schedules the card for tomorrow; a grade of 3 or
// better advances the interval and adjusts the ease factor.
func (c *Card) Review(grade int, now time.Time) error {
	if grade < CardMinGrade || grade > CardMaxGrade {
		return fmt.Errorf("domain.Review: grade %d outside [%d,%d]: %w", grade, CardMinGrade, CardMaxGrade, ErrValidation)
	}

	if grade < 3 {
		c.Repetitions = 0
		c.IntervalDays = 1
	} else {
		c.Repetitions++
		switch c.Repetitions {
		case 1:
			c.IntervalDays = 1
		case 2:
			c.IntervalDays = 6
		default:
			c.IntervalDays = int(math.Round(float64(c.IntervalDays) * c.EaseFactor))
		}

		q := float64(grade)
		c.EaseFactor += 0.1 - (5-q)*(0.08+(5-q)*0.02)
		if c.EaseFactor < CardMinEase {
			c.EaseFactor = CardMinEase
		}
	}

	c.NextReviewAt = now.AddDate(0, 0, c.IntervalDays)
	c.UpdatedAt = now

	return nil
}

// Due reports whether the card is due for review at the given time.
func (c *Card) Due(now time.Time) bool {
	return !c.NextReviewAt.After(now)
}

type CardRepository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Card, error)
	ListDue(ctx context.Context, ownerID uuid.UUID, due time.Time, limit int) ([]*Card, error)
	ListByDeck(ctx context.Context, ownerID uuid.UUID, deck string) ([]*Card, error)
	Update(ctx context.Context, c *Card) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
