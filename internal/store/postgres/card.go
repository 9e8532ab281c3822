package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grovehq/grove/internal/domain"
)

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO cards (id, owner_id, deck, front, back, ease_factor, interval_days, repetitions, next_review_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.OwnerID, c.Deck, c.Front, c.Back,
		c.EaseFactor, c.IntervalDays, c.Repetitions, c.NextReviewAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	return nil
}

func (r *CardRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Card, error) {
	var c domain.Card

	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, deck, front, back, ease_factor, interval_days,
		        repetitions, next_review_at, created_at, updated_at
		 FROM cards WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	).Scan(
		&c.ID, &c.OwnerID, &c.Deck, &c.Front, &c.Back,
		&c.EaseFactor, &c.IntervalDays, &c.Repetitions, &c.NextReviewAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CardRepo) ListDue(ctx context.Context, ownerID uuid.UUID, due time.Time, limit int) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, deck, front, back, ease_factor, interval_days,
		        repetitions, next_review_at, created_at, updated_at
		 FROM cards WHERE owner_id = $1 AND next_review_at <= $2
		 ORDER BY next_review_at
		 LIMIT $3`,
		ownerID, due, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListDue: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, "cardRepo.ListDue")
}

func (r *CardRepo) ListByDeck(ctx context.Context, ownerID uuid.UUID, deck string) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, deck, front, back, ease_factor, interval_days,
		        repetitions, next_review_at, created_at, updated_at
		 FROM cards WHERE owner_id = $1 AND deck = $2
		 ORDER BY created_at`,
		ownerID, deck,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByDeck: %w", err)
	}
	defer rows.Close()

	return scanCards(rows, "cardRepo.ListByDeck")
}

func (r *CardRepo) Update(ctx context.Context, c *domain.Card) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET deck = $1, front = $2, back = $3, ease_factor = $4,
		        interval_days = $5, repetitions = $6, next_review_at = $7, updated_at = $8
		 WHERE owner_id = $9 AND id = $10`,
		c.Deck, c.Front, c.Back, c.EaseFactor,
		c.IntervalDays, c.Repetitions, c.NextReviewAt, c.UpdatedAt,
		c.OwnerID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *CardRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM cards WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanCards(rows pgx.Rows, caller string) ([]*domain.Card, error) {
	var cards []*domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(
			&c.ID, &c.OwnerID, &c.Deck, &c.Front, &c.Back,
			&c.EaseFactor, &c.IntervalDays, &c.Repetitions, &c.NextReviewAt,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		cards = append(cards, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return cards, nil
}
