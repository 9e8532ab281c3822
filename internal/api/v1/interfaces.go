package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/domain"
	"github.com/grovehq/grove/internal/tasktree"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Nodes() domain.NodeRepository
	Cards() domain.CardRepository
	Battles() domain.BattleRepository
	Audit() domain.AuditRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// TreeService abstracts the task-tree lifecycle façade for handler testing.
// *tasktree.Service satisfies this interface.
type TreeService interface {
	CreateNode(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, title, description string) (*domain.TaskNode, error)
	ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*domain.TaskNode, error)
	GetNode(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error)
	EditNode(ctx context.Context, ownerID, id uuid.UUID, params tasktree.EditNodeParams) (*domain.TaskNode, error)
	AdvanceStatus(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error)
	SetProgress(ctx context.Context, ownerID, id uuid.UUID, percentage int) (*domain.TaskNode, error)
	AccumulateTime(ctx context.Context, ownerID, id uuid.UUID, deltaMillis int64) (*domain.TaskNode, error)
	ResetTime(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error)
	MoveNode(ctx context.Context, ownerID, id uuid.UUID, newParentID *uuid.UUID) (*domain.TaskNode, error)
	ReorderChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, ids []uuid.UUID) error
	DeleteSubtree(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
	SubtreeStats(ctx context.Context, ownerID, id uuid.UUID) (*domain.SubtreeStats, error)
}

// EventPublisher mirrors tasktree.EventPublisher for battle event fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
