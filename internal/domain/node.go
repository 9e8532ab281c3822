package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NodeStatus string

const (
	NodeStatusNotStarted NodeStatus = "not_started"
	NodeStatusInProgress NodeStatus = "in_progress"
	NodeStatusCompleted  NodeStatus = "completed"
)

// DefaultMaxDepth is the deepest nesting level a task node may reach.
// Root nodes have depth 0, so a tree holds at most DefaultMaxDepth+1 levels.
// Overridable via GROVE_TREE_MAX_DEPTH.
const DefaultMaxDepth = 5

// TaskNode is one entry in the hierarchical task tree. A nil ParentID marks a
// root node. SortOrder is unique among siblings sharing the same
// (OwnerID, ParentID) pair; ascending means earlier in display order.
type TaskNode struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	ParentID    *uuid.UUID
	Title       string
	Description string
	Status      NodeStatus
	SortOrder   int
	Depth       int // derived from the ancestor chain, not stored
	TimeSpentMS int64
	Completion  int // percentage in [0, 100]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AdvanceStatus moves the node one step through the wrapping status cycle
// not_started -> in_progress -> completed -> not_started.
//
// Entering completed forces completion to 100. Leaving completed resets
// completion to 0 only when it is exactly 100; a partial value recorded before
// a premature completion toggle is kept.
func (n *TaskNode) AdvanceStatus() {
	switch n.Status {
	case NodeStatusNotStarted:
		n.Status = NodeStatusInProgress
	case NodeStatusInProgress:
		n.Status = NodeStatusCompleted
		n.Completion = 100
	case NodeStatusCompleted:
		n.Status = NodeStatusNotStarted
		if n.Completion == 100 {
			n.Completion = 0
		}
	default:
		n.Status = NodeStatusNotStarted
	}
}

// SetProgress sets the stored completion percentage. Completion is
// leaf-authoritative: a parent's value is never derived from its children.
func (n *TaskNode) SetProgress(percentage int) error {
	if percentage < 0 || percentage > 100 {
		return fmt.Errorf("domain.SetProgress: percentage %d outside [0,100]: %w", percentage, ErrValidation)
	}
	n.Completion = percentage
	return nil
}

// AccumulateTime adds a non-negative duration to the node's accumulated time.
// TimeSpentMS never decreases except via ResetTime.
func (n *TaskNode) AccumulateTime(deltaMillis int64) error {
	if deltaMillis < 0 {
		return fmt.Errorf("domain.AccumulateTime: negative delta %d: %w", deltaMillis, ErrValidation)
	}
	n.TimeSpentMS += deltaMillis
	return nil
}

// ResetTime clears the accumulated time. The only sanctioned decrease.
func (n *TaskNode) ResetTime() {
	n.TimeSpentMS = 0
}

// ValidateTitle rejects empty or whitespace-only titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("domain.ValidateTitle: empty title: %w", ErrValidation)
	}
	return nil
}

// SubtreeStats is a read-only rollup over a node and all of its descendants.
// Stored per-node completion values are never modified by aggregation.
type SubtreeStats struct {
	NodeCount      int
	CompletedCount int
	TotalTimeMS    int64
	MeanCompletion int
}

// NodeRepository is the persistence contract for task nodes. Every query is
// scoped by ownerID; a node belonging to another owner behaves as absent.
type NodeRepository interface {
	Create(ctx context.Context, n *TaskNode) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*TaskNode, error)
	ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*TaskNode, error)
	// ListSubtree returns the node and all transitive descendants, each with
	// Depth populated relative to the requested node (0 at the node itself).
	// A missing id yields an empty slice, not ErrNotFound.
	ListSubtree(ctx context.Context, ownerID, id uuid.UUID) ([]*TaskNode, error)
	Update(ctx context.Context, n *TaskNode) error
	// SetOrders applies a batch of sibling sort-order assignments atomically.
	SetOrders(ctx context.Context, ownerID uuid.UUID, orders map[uuid.UUID]int) error
	// DeleteMany removes the given nodes in one transaction, all or nothing.
	DeleteMany(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error)
}
