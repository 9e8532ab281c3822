package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BattleStatus string

const (
	BattleStatusPending  BattleStatus = "pending"
	BattleStatusRunning  BattleStatus = "running"
	BattleStatusPaused   BattleStatus = "paused"
	BattleStatusFinished BattleStatus = "finished"
)

// Battle is a server-authoritative countdown timer. RemainingMS is a snapshot
// taken when the battle was last started, paused, or resumed; while running,
// the live remaining time is RemainingMS minus the wall time elapsed since
// StartedAt. Clients never supply remaining time.
type Battle struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	NodeID      *uuid.UUID // optional task node credited with the elapsed time
	DurationMS  int64
	RemainingMS int64
	Status      BattleStatus
	StartedAt   *time.Time // set while running
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBattle returns a pending battle for the given countdown duration.
func NewBattle(ownerID uuid.UUID, nodeID *uuid.UUID, durationMillis int64, now time.Time) (*Battle, error) {
	if durationMillis <= 0 {
		return nil, fmt.Errorf("domain.NewBattle: duration %d must be positive: %w", durationMillis, ErrValidation)
	}
	return &Battle{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		NodeID:      nodeID,
		DurationMS:  durationMillis,
		RemainingMS: durationMillis,
		Status:      BattleStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Start begins the countdown. Legal from pending only.
func (b *Battle) Start(now time.Time) error {
	if b.Status != BattleStatusPending {
		return fmt.Errorf("domain.Battle.Start: cannot start from %s: %w", b.Status, ErrConflict)
	}
	b.Status = BattleStatusRunning
	b.StartedAt = &now
	b.UpdatedAt = now
	return nil
}

// Pause freezes the countdown, snapshotting the remaining time.
func (b *Battle) Pause(now time.Time) error {
	if b.Status != BattleStatusRunning {
		return fmt.Errorf("domain.Battle.Pause: cannot pause from %s: %w", b.Status, ErrConflict)
	}
	b.RemainingMS = b.RemainingAt(now)
	b.Status = BattleStatusPaused
	b.StartedAt = nil
	b.UpdatedAt = now
	return nil
}

// Resume restarts a paused countdown from the snapshotted remaining time.
func (b *Battle) Resume(now time.Time) error {
	if b.Status != BattleStatusPaused {
		return fmt.Errorf("domain.Battle.Resume: cannot resume from %s: %w", b.Status, ErrConflict)
	}
	b.Status = BattleStatusRunning
	b.StartedAt = &now
	b.UpdatedAt = now
	return nil
}

// Finish ends the battle and returns the total elapsed time in milliseconds.
// Legal from running or paused.
func (b *Battle) Finish(now time.Time) (int64, error) {
	switch b.Status {
	case BattleStatusRunning, BattleStatusPaused:
	default:
		return 0, fmt.Errorf("domain.Battle.Finish: cannot finish from %s: %w", b.Status, ErrConflict)
	}
	b.RemainingMS = b.RemainingAt(now)
	b.Status = BattleStatusFinished
	b.StartedAt = nil
	b.UpdatedAt = now
	return b.DurationMS - b.RemainingMS, nil
}

// RemainingAt computes the live remaining time at the given instant,
// clamped at zero.
func (b *Battle) RemainingAt(now time.Time) int64 {
	remaining := b.RemainingMS
	if b.Status == BattleStatusRunning && b.StartedAt != nil {
		remaining -= now.Sub(*b.StartedAt).Milliseconds()
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Expired reports whether a running battle's countdown has reached zero.
func (b *Battle) Expired(now time.Time) bool {
	return b.Status == BattleStatusRunning && b.RemainingAt(now) == 0
}

type BattleRepository interface {
	Create(ctx context.Context, b *Battle) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Battle, error)
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]*Battle, error)
	Update(ctx context.Context, b *Battle) error
}
