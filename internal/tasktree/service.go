package tasktree

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grovehq/grove/internal/domain"
)

// EventPublisher pushes tree-change notifications after a committed mutation.
// *redis.PubSub satisfies this interface.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// TreeChannel returns the pub/sub channel carrying one owner's tree events.
func TreeChannel(ownerID uuid.UUID) string {
	return "tree:" + ownerID.String()
}

// TreeEvent is the payload published on TreeChannel after a mutation.
type TreeEvent struct {
	Action  string    `json:"action"`
	NodeID  uuid.UUID `json:"node_id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Deleted int64     `json:"deleted,omitempty"`
	At      time.Time `json:"at"`
}

const lockStripes = 64

// Service is the lifecycle façade over the node store. Structural mutations
// (create, move, reorder, delete) are serialized per (owner, parent) through
// striped mutexes so sibling order reads and writes cannot interleave; the
// unique (owner_id, parent_id, sort_order) index is the storage-level
// backstop. Cycle and depth safety span both parents' subtrees, so moves
// additionally take the owner lock exclusively while every other structural
// mutation holds it shared: a move never validates against a tree that
// another mutation is reshaping. Field edits rely on last-write-wins updates
// that cannot resurrect a deleted row.
type Service struct {
	nodes    domain.NodeRepository
	audit    domain.AuditRepository // nil disables audit recording
	events   EventPublisher         // nil disables event publishing
	maxDepth int

	locks      [lockStripes]sync.Mutex
	ownerLocks [lockStripes]sync.RWMutex
}

// NewService creates the tree lifecycle service. maxDepth values below 1 fall
// back to domain.DefaultMaxDepth.
func NewService(nodes domain.NodeRepository, audit domain.AuditRepository, events EventPublisher, maxDepth int) *Service {
	if maxDepth < 1 {
		maxDepth = domain.DefaultMaxDepth
	}
	return &Service{
		nodes:    nodes,
		audit:    audit,
		events:   events,
		maxDepth: maxDepth,
	}
}

// MaxDepth returns the configured nesting limit.
func (s *Service) MaxDepth() int { return s.maxDepth }

func (s *Service) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockStripes]
}

// ownerLockFor returns the owner-level structural lock. Owners may share a
// stripe; that only adds contention, never a correctness hazard, because
// different owners' trees are disjoint.
func (s *Service) ownerLockFor(ownerID uuid.UUID) *sync.RWMutex {
	h := fnv.New32a()
	_, _ = h.Write(ownerID[:])
	return &s.ownerLocks[h.Sum32()%lockStripes]
}

// CreateNode creates a node under parentID (nil for a root) with the next
// free sibling sort order and status not_started.
func (s *Service) CreateNode(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, title, description string) (*domain.TaskNode, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return nil, fmt.Errorf("tasktree.CreateNode: %w", err)
	}

	ol := s.ownerLockFor(ownerID)
	ol.RLock()
	defer ol.RUnlock()

	depth := 0
	if parentID != nil {
		parent, err := s.nodes.GetByID(ctx, ownerID, *parentID)
		if err != nil {
			return nil, fmt.Errorf("tasktree.CreateNode: parent: %w", err)
		}
		parentDepth, err := s.depthOf(ctx, ownerID, parent)
		if err != nil {
			return nil, fmt.Errorf("tasktree.CreateNode: %w", err)
		}
		if !CanNest(parentDepth, s.maxDepth) {
			return nil, fmt.Errorf("tasktree.CreateNode: depth %d exceeds max %d: %w",
				parentDepth+1, s.maxDepth, domain.ErrInvalidHierarchy)
		}
		depth = parentDepth + 1
	}

	mu := s.lockFor(parentKey(ownerID, parentID))
	mu.Lock()
	defer mu.Unlock()

	siblings, err := s.nodes.ListChildren(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("tasktree.CreateNode: %w", err)
	}

	now := time.Now()
	n := &domain.TaskNode{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		ParentID:    parentID,
		Title:       title,
		Description: description,
		Status:      domain.NodeStatusNotStarted,
		SortOrder:   NextOrder(siblings),
		Depth:       depth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.nodes.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.CreateNode: %w", err)
	}

	s.record(ctx, ownerID, "create", n.ID, map[string]any{"title": title})
	s.publish(ctx, ownerID, "created", n.ID, 0)

	return n, nil
}

// ListChildren returns the direct children of parentID (nil for roots),
// ordered by sort order ascending. Never returns another owner's nodes.
func (s *Service) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*domain.TaskNode, error) {
	children, err := s.nodes.ListChildren(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("tasktree.ListChildren: %w", err)
	}
	return children, nil
}

// GetNode fetches a single node with its derived depth populated.
func (s *Service) GetNode(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.GetNode: %w", err)
	}
	depth, err := s.depthOf(ctx, ownerID, n)
	if err != nil {
		return nil, fmt.Errorf("tasktree.GetNode: %w", err)
	}
	n.Depth = depth
	return n, nil
}

// EditNodeParams carries a partial update; nil fields are left untouched.
type EditNodeParams struct {
	Title       *string
	Description *string
}

// EditNode applies a partial title/description update.
func (s *Service) EditNode(ctx context.Context, ownerID, id uuid.UUID, params EditNodeParams) (*domain.TaskNode, error) {
	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.EditNode: %w", err)
	}

	if params.Title != nil {
		if err := domain.ValidateTitle(*params.Title); err != nil {
			return nil, fmt.Errorf("tasktree.EditNode: %w", err)
		}
		n.Title = *params.Title
	}
	if params.Description != nil {
		n.Description = *params.Description
	}
	n.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.EditNode: %w", err)
	}

	s.record(ctx, ownerID, "edit", id, nil)

	return n, nil
}

// AdvanceStatus moves the node one step through the wrapping status cycle.
func (s *Service) AdvanceStatus(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.AdvanceStatus: %w", err)
	}

	n.AdvanceStatus()
	n.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.AdvanceStatus: %w", err)
	}

	s.record(ctx, ownerID, "status", id, map[string]any{"status": string(n.Status)})

	return n, nil
}

// SetProgress stores an explicit completion percentage in [0,100].
func (s *Service) SetProgress(ctx context.Context, ownerID, id uuid.UUID, percentage int) (*domain.TaskNode, error) {
	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.SetProgress: %w", err)
	}

	if err := n.SetProgress(percentage); err != nil {
		return nil, fmt.Errorf("tasktree.SetProgress: %w", err)
	}
	n.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.SetProgress: %w", err)
	}

	return n, nil
}

// AccumulateTime adds a non-negative millisecond delta to the node's
// accumulated time. Callers batch deltas rather than writing once per second.
func (s *Service) AccumulateTime(ctx context.Context, ownerID, id uuid.UUID, deltaMillis int64) (*domain.TaskNode, error) {
	if deltaMillis < 0 {
		return nil, fmt.Errorf("tasktree.AccumulateTime: negative delta %d: %w", deltaMillis, domain.ErrValidation)
	}

	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.AccumulateTime: %w", err)
	}

	if err := n.AccumulateTime(deltaMillis); err != nil {
		return nil, fmt.Errorf("tasktree.AccumulateTime: %w", err)
	}
	n.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.AccumulateTime: %w", err)
	}

	return n, nil
}

// ResetTime clears the node's accumulated time.
func (s *Service) ResetTime(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.ResetTime: %w", err)
	}

	n.ResetTime()
	n.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.ResetTime: %w", err)
	}

	return n, nil
}

// MoveNode reparents a node under newParentID (nil for root level), appending
// it after the new siblings. Rejects self-parenting, cycles, and moves whose
// deepest descendant would exceed the depth limit. Cycle and depth
// validation must observe the same tree the reparent commits into, so the
// owner lock is held exclusively for the whole operation.
func (s *Service) MoveNode(ctx context.Context, ownerID, id uuid.UUID, newParentID *uuid.UUID) (*domain.TaskNode, error) {
	ol := s.ownerLockFor(ownerID)
	ol.Lock()
	defer ol.Unlock()

	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.MoveNode: %w", err)
	}

	subtree, err := s.nodes.ListSubtree(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.MoveNode: %w", err)
	}

	newParentDepth := -1 // moving to root level: node lands at depth 0
	var newParent *domain.TaskNode
	if newParentID != nil {
		newParent, err = s.nodes.GetByID(ctx, ownerID, *newParentID)
		if err != nil {
			return nil, fmt.Errorf("tasktree.MoveNode: new parent: %w", err)
		}
		newParentDepth, err = s.depthOf(ctx, ownerID, newParent)
		if err != nil {
			return nil, fmt.Errorf("tasktree.MoveNode: %w", err)
		}
		if !CanReparent(n, subtree, newParent, newParentDepth, s.maxDepth) {
			return nil, fmt.Errorf("tasktree.MoveNode: node %s cannot nest under %s (depth %d+1+%d > max %d or cycle): %w",
				id, *newParentID, newParentDepth, SubtreeHeight(subtree), s.maxDepth, domain.ErrInvalidHierarchy)
		}
	}

	siblings, err := s.nodes.ListChildren(ctx, ownerID, newParentID)
	if err != nil {
		return nil, fmt.Errorf("tasktree.MoveNode: %w", err)
	}

	n.ParentID = newParentID
	n.SortOrder = NextOrder(siblings)
	n.Depth = newParentDepth + 1
	n.UpdatedAt = time.Now()

	if err := s.nodes.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("tasktree.MoveNode: %w", err)
	}

	s.record(ctx, ownerID, "move", id, map[string]any{"parent_id": newParentID})
	s.publish(ctx, ownerID, "moved", id, 0)

	return n, nil
}

// ReorderChildren rewrites the sibling sort orders under parentID to follow
// the given sequence, which must be a permutation of the current children.
func (s *Service) ReorderChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, ids []uuid.UUID) error {
	ol := s.ownerLockFor(ownerID)
	ol.RLock()
	defer ol.RUnlock()

	mu := s.lockFor(parentKey(ownerID, parentID))
	mu.Lock()
	defer mu.Unlock()

	children, err := s.nodes.ListChildren(ctx, ownerID, parentID)
	if err != nil {
		return fmt.Errorf("tasktree.ReorderChildren: %w", err)
	}

	if len(ids) != len(children) {
		return fmt.Errorf("tasktree.ReorderChildren: got %d ids, parent has %d children: %w",
			len(ids), len(children), domain.ErrValidation)
	}
	current := make(map[uuid.UUID]bool, len(children))
	for _, c := range children {
		current[c.ID] = true
	}
	for _, id := range ids {
		if !current[id] {
			return fmt.Errorf("tasktree.ReorderChildren: %s is not a child of this parent: %w", id, domain.ErrValidation)
		}
		delete(current, id)
	}

	if err := s.nodes.SetOrders(ctx, ownerID, Reorder(ids)); err != nil {
		return fmt.Errorf("tasktree.ReorderChildren: %w", err)
	}

	s.record(ctx, ownerID, "reorder", uuid.Nil, map[string]any{"count": len(ids)})

	return nil
}

// DeleteSubtree removes the node and every transitive descendant in one
// transaction and returns the number of nodes deleted. Readers never observe
// a half-deleted subtree.
func (s *Service) DeleteSubtree(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	ol := s.ownerLockFor(ownerID)
	ol.RLock()
	defer ol.RUnlock()

	n, err := s.nodes.GetByID(ctx, ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("tasktree.DeleteSubtree: %w", err)
	}

	mu := s.lockFor(parentKey(ownerID, n.ParentID))
	mu.Lock()
	defer mu.Unlock()

	// The parent stripe serializes this delete against sibling mutations, but
	// a create deeper inside the subtree can still land between this read and
	// DeleteMany. The parent_id FK cascades such a row away with its parent;
	// the returned count omits it.
	subtree, err := s.nodes.ListSubtree(ctx, ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("tasktree.DeleteSubtree: %w", err)
	}

	ids := make([]uuid.UUID, len(subtree))
	for i, d := range subtree {
		ids[i] = d.ID
	}

	deleted, err := s.nodes.DeleteMany(ctx, ownerID, ids)
	if err != nil {
		return 0, fmt.Errorf("tasktree.DeleteSubtree: %w", err)
	}

	s.record(ctx, ownerID, "delete_subtree", id, map[string]any{"deleted": deleted})
	s.publish(ctx, ownerID, "deleted", id, deleted)

	return deleted, nil
}

// SubtreeStats aggregates the node and its descendants into a read-only
// rollup. Stored per-node completion values are never modified.
func (s *Service) SubtreeStats(ctx context.Context, ownerID, id uuid.UUID) (*domain.SubtreeStats, error) {
	subtree, err := s.nodes.ListSubtree(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("tasktree.SubtreeStats: %w", err)
	}
	if len(subtree) == 0 {
		return nil, fmt.Errorf("tasktree.SubtreeStats: %w", domain.ErrNotFound)
	}

	stats := &domain.SubtreeStats{NodeCount: len(subtree)}
	sum := 0
	for _, n := range subtree {
		if n.Status == domain.NodeStatusCompleted {
			stats.CompletedCount++
		}
		stats.TotalTimeMS += n.TimeSpentMS
		sum += n.Completion
	}
	stats.MeanCompletion = sum / len(subtree)

	return stats, nil
}

// depthOf walks the ancestor chain to compute a node's depth. The walk is
// bounded by maxDepth; a longer chain means the tree is corrupt.
func (s *Service) depthOf(ctx context.Context, ownerID uuid.UUID, n *domain.TaskNode) (int, error) {
	depth := 0
	parentID := n.ParentID
	for parentID != nil {
		if depth > s.maxDepth {
			return 0, fmt.Errorf("tasktree.depthOf: ancestor chain of %s exceeds max depth %d: %w",
				n.ID, s.maxDepth, domain.ErrInvalidHierarchy)
		}
		parent, err := s.nodes.GetByID(ctx, ownerID, *parentID)
		if err != nil {
			return 0, fmt.Errorf("tasktree.depthOf: %w", err)
		}
		parentID = parent.ParentID
		depth++
	}
	return depth, nil
}

// record writes an audit entry, best effort.
func (s *Service) record(ctx context.Context, ownerID uuid.UUID, action string, resourceID uuid.UUID, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Action:     action,
		Resource:   "node",
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("tasktree: failed to record audit entry")
	}
}

// publish emits a tree event, best effort.
func (s *Service) publish(ctx context.Context, ownerID uuid.UUID, action string, nodeID uuid.UUID, deleted int64) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(TreeEvent{
		Action:  action,
		NodeID:  nodeID,
		OwnerID: ownerID,
		Deleted: deleted,
		At:      time.Now(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("tasktree: failed to marshal tree event")
		return
	}
	if err := s.events.Publish(ctx, TreeChannel(ownerID), payload); err != nil {
		log.Warn().Err(err).Msg("tasktree: failed to publish tree event")
	}
}
