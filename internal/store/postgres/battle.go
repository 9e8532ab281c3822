package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grovehq/grove/internal/domain"
)

type BattleRepo struct {
	pool *pgxpool.Pool
}

func NewBattleRepo(pool *pgxpool.Pool) *BattleRepo {
	return &BattleRepo{pool: pool}
}

func (r *BattleRepo) Create(ctx context.Context, b *domain.Battle) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO battles (id, owner_id, node_id, duration_ms, remaining_ms, status, started_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.OwnerID, b.NodeID, b.DurationMS, b.RemainingMS,
		b.Status, b.StartedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("battleRepo.Create: %w", err)
	}

	return nil
}

func (r *BattleRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Battle, error) {
	var b domain.Battle

	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, node_id, duration_ms, remaining_ms, status, started_at, created_at, updated_at
		 FROM battles WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	).Scan(
		&b.ID, &b.OwnerID, &b.NodeID, &b.DurationMS, &b.RemainingMS,
		&b.Status, &b.StartedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("battleRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("battleRepo.GetByID: %w", err)
	}

	return &b, nil
}

func (r *BattleRepo) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Battle, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, node_id, duration_ms, remaining_ms, status, started_at, created_at, updated_at
		 FROM battles
		 WHERE owner_id = $1 AND status IN ($2, $3, $4)
		 ORDER BY created_at DESC`,
		ownerID, domain.BattleStatusPending, domain.BattleStatusRunning, domain.BattleStatusPaused,
	)
	if err != nil {
		return nil, fmt.Errorf("battleRepo.ListActive: %w", err)
	}
	defer rows.Close()

	var battles []*domain.Battle
	for rows.Next() {
		var b domain.Battle
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.NodeID, &b.DurationMS, &b.RemainingMS,
			&b.Status, &b.StartedAt, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("battleRepo.ListActive: scan: %w", err)
		}
		battles = append(battles, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("battleRepo.ListActive: rows: %w", err)
	}

	return battles, nil
}

func (r *BattleRepo) Update(ctx context.Context, b *domain.Battle) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE battles SET node_id = $1, duration_ms = $2, remaining_ms = $3,
		        status = $4, started_at = $5, updated_at = $6
		 WHERE owner_id = $7 AND id = $8`,
		b.NodeID, b.DurationMS, b.RemainingMS,
		b.Status, b.StartedAt, b.UpdatedAt,
		b.OwnerID, b.ID,
	)
	if err != nil {
		return fmt.Errorf("battleRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("battleRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}
