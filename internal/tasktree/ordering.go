package tasktree

import (
	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/domain"
)

// NextOrder returns the sort order for a node appended after the given
// siblings: one past the current maximum, or 0 for an empty sibling list.
// Callers must hold the structural lock for the parent so two creates cannot
// observe the same sibling set.
func NextOrder(siblings []*domain.TaskNode) int {
	next := 0
	for _, s := range siblings {
		if s.SortOrder >= next {
			next = s.SortOrder + 1
		}
	}
	return next
}

// Reorder assigns dense ascending sort orders 0, 1, 2, ... following the
// desired sequence.
func Reorder(ids []uuid.UUID) map[uuid.UUID]int {
	orders := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		orders[id] = i
	}
	return orders
}
