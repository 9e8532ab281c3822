package tasktree

import (
	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/domain"
)

// CanNest reports whether a child may be created under a parent sitting at
// parentDepth. Root creation (no parent) is always legal.
func CanNest(parentDepth, maxDepth int) bool {
	return parentDepth+1 <= maxDepth
}

// CanReparent reports whether node may be moved under newParent without
// self-parenting, introducing a cycle, or pushing the deepest descendant past
// maxDepth. subtree is node plus all descendants with Depth relative to node
// (0 at node itself); newParentDepth is newParent's absolute depth.
func CanReparent(node *domain.TaskNode, subtree []*domain.TaskNode, newParent *domain.TaskNode, newParentDepth, maxDepth int) bool {
	if newParent.ID == node.ID {
		return false
	}
	for _, d := range subtree {
		if d.ID == newParent.ID {
			return false
		}
	}
	return newParentDepth+1+SubtreeHeight(subtree) <= maxDepth
}

// SubtreeHeight returns the height of a subtree listing whose Depth values
// are relative to the subtree root: 0 for a single node.
func SubtreeHeight(subtree []*domain.TaskNode) int {
	height := 0
	for _, n := range subtree {
		if n.Depth > height {
			height = n.Depth
		}
	}
	return height
}

// parentKey renders a stable lock/cache key for an (owner, parent) pair.
// Root siblings share the owner-scoped "root" bucket.
func parentKey(ownerID uuid.UUID, parentID *uuid.UUID) string {
	if parentID == nil {
		return ownerID.String() + "/root"
	}
	return ownerID.String() + "/" + parentID.String()
}
