package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditEntry struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Action     string // "create", "edit", "move", "reorder", "status", "delete_subtree", ...
	Resource   string // "node", "card", "battle"
	ResourceID uuid.UUID
	Details    map[string]any
	CreatedAt  time.Time
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
	ListByResource(ctx context.Context, ownerID uuid.UUID, resource string, resourceID uuid.UUID) ([]*AuditEntry, error)
}
