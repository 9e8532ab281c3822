package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grovehq/grove/internal/domain"
)

type NodeRepo struct {
	pool *pgxpool.Pool
}

func NewNodeRepo(pool *pgxpool.Pool) *NodeRepo {
	return &NodeRepo{pool: pool}
}

func (r *NodeRepo) Create(ctx context.Context, n *domain.TaskNode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO task_nodes (id, owner_id, parent_id, title, description, status, sort_order, time_spent_ms, completion, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		n.ID, n.OwnerID, n.ParentID, n.Title, n.Description,
		n.Status, n.SortOrder, n.TimeSpentMS, n.Completion,
		n.CreatedAt, n.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("nodeRepo.Create: sibling order collision: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("nodeRepo.Create: %w", err)
	}

	return nil
}

func (r *NodeRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	var n domain.TaskNode

	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, parent_id, title, description, status, sort_order,
		        time_spent_ms, completion, created_at, updated_at
		 FROM task_nodes WHERE owner_id = $1 AND id = $2`,
		ownerID, id,
	).Scan(
		&n.ID, &n.OwnerID, &n.ParentID, &n.Title, &n.Description,
		&n.Status, &n.SortOrder, &n.TimeSpentMS, &n.Completion,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("nodeRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("nodeRepo.GetByID: %w", err)
	}

	return &n, nil
}

func (r *NodeRepo) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*domain.TaskNode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, parent_id, title, description, status, sort_order,
		        time_spent_ms, completion, created_at, updated_at
		 FROM task_nodes
		 WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		 ORDER BY sort_order`,
		ownerID, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("nodeRepo.ListChildren: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows, "nodeRepo.ListChildren")
}

// ListSubtree returns the node and every transitive descendant. Depth is
// populated relative to the requested node (0 at the node itself). Returns
// an empty slice, not ErrNotFound, when the root id does not exist.
func (r *NodeRepo) ListSubtree(ctx context.Context, ownerID, id uuid.UUID) ([]*domain.TaskNode, error) {
	rows, err := r.pool.Query(ctx,
		`WITH RECURSIVE subtree AS (
		     SELECT n.*, 0 AS rel_depth
		     FROM task_nodes n WHERE n.owner_id = $1 AND n.id = $2
		   UNION ALL
		     SELECT n.*, s.rel_depth + 1
		     FROM task_nodes n
		     JOIN subtree s ON n.parent_id = s.id
		     WHERE n.owner_id = $1
		 )
		 SELECT id, owner_id, parent_id, title, description, status, sort_order,
		        time_spent_ms, completion, created_at, updated_at, rel_depth
		 FROM subtree
		 ORDER BY rel_depth, sort_order`,
		ownerID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("nodeRepo.ListSubtree: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.TaskNode
	for rows.Next() {
		var n domain.TaskNode
		if err := rows.Scan(
			&n.ID, &n.OwnerID, &n.ParentID, &n.Title, &n.Description,
			&n.Status, &n.SortOrder, &n.TimeSpentMS, &n.Completion,
			&n.CreatedAt, &n.UpdatedAt, &n.Depth,
		); err != nil {
			return nil, fmt.Errorf("nodeRepo.ListSubtree: scan: %w", err)
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nodeRepo.ListSubtree: rows: %w", err)
	}

	return nodes, nil
}

func (r *NodeRepo) Update(ctx context.Context, n *domain.TaskNode) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE task_nodes SET parent_id = $1, title = $2, description = $3,
		        status = $4, sort_order = $5, time_spent_ms = $6, completion = $7, updated_at = $8
		 WHERE owner_id = $9 AND id = $10`,
		n.ParentID, n.Title, n.Description,
		n.Status, n.SortOrder, n.TimeSpentMS, n.Completion, n.UpdatedAt,
		n.OwnerID, n.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("nodeRepo.Update: sibling order collision: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("nodeRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("nodeRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// SetOrders rewrites sibling sort orders in one transaction. Orders are
// negated first so the unique sibling index never observes a transient
// duplicate while values shuffle.
func (r *NodeRepo) SetOrders(ctx context.Context, ownerID uuid.UUID, orders map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("nodeRepo.SetOrders: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`UPDATE task_nodes SET sort_order = -sort_order - 1
		 WHERE owner_id = $1 AND id = ANY($2)`,
		ownerID, ids,
	)
	if err != nil {
		return fmt.Errorf("nodeRepo.SetOrders: shift: %w", err)
	}

	for id, order := range orders {
		tag, err := tx.Exec(ctx,
			`UPDATE task_nodes SET sort_order = $1, updated_at = now()
			 WHERE owner_id = $2 AND id = $3`,
			order, ownerID, id,
		)
		if err != nil {
			return fmt.Errorf("nodeRepo.SetOrders: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("nodeRepo.SetOrders: node %s: %w", id, domain.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("nodeRepo.SetOrders: commit: %w", err)
	}

	return nil
}

// DeleteMany removes the given nodes in a single statement, so the deletion
// is atomic: readers either see the whole subtree or none of it.
func (r *NodeRepo) DeleteMany(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM task_nodes WHERE owner_id = $1 AND id = ANY($2)`,
		ownerID, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("nodeRepo.DeleteMany: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("nodeRepo.DeleteMany: %w", domain.ErrNotFound)
	}

	return tag.RowsAffected(), nil
}

func scanNodes(rows pgx.Rows, caller string) ([]*domain.TaskNode, error) {
	var nodes []*domain.TaskNode
	for rows.Next() {
		var n domain.TaskNode
		if err := rows.Scan(
			&n.ID, &n.OwnerID, &n.ParentID, &n.Title, &n.Description,
			&n.Status, &n.SortOrder, &n.TimeSpentMS, &n.Completion,
			&n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return nodes, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
