package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/domain"
	"github.com/grovehq/grove/internal/server/middleware"
	"github.com/grovehq/grove/internal/tasktree"
)

// ---------------------------------------------------------------------------
// Context helpers — inject owner into context for DoCtx
// ---------------------------------------------------------------------------

func ownerCtx(ownerID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyOwnerID, ownerID)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users   domain.UserRepository
	nodes   domain.NodeRepository
	cards   domain.CardRepository
	battles domain.BattleRepository
	audit   domain.AuditRepository
}

func (m *mockDataStore) Users() domain.UserRepository     { return m.users }
func (m *mockDataStore) Nodes() domain.NodeRepository     { return m.nodes }
func (m *mockDataStore) Cards() domain.CardRepository     { return m.cards }
func (m *mockDataStore) Battles() domain.BattleRepository { return m.battles }
func (m *mockDataStore) Audit() domain.AuditRepository    { return m.audit }

// ---------------------------------------------------------------------------
// Mock CardRepository
// ---------------------------------------------------------------------------

type mockCardRepo struct {
	createFunc     func(ctx context.Context, c *domain.Card) error
	getByIDFunc    func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Card, error)
	listDueFunc    func(ctx context.Context, ownerID uuid.UUID, due time.Time, limit int) ([]*domain.Card, error)
	listByDeckFunc func(ctx context.Context, ownerID uuid.UUID, deck string) ([]*domain.Card, error)
	updateFunc     func(ctx context.Context, c *domain.Card) error
	deleteFunc     func(ctx context.Context, ownerID, id uuid.UUID) error
}

func (m *mockCardRepo) Create(ctx context.Context, c *domain.Card) error {
	return m.createFunc(ctx, c)
}

func (m *mockCardRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Card, error) {
	return m.getByIDFunc(ctx, ownerID, id)
}

func (m *mockCardRepo) ListDue(ctx context.Context, ownerID uuid.UUID, due time.Time, limit int) ([]*domain.Card, error) {
	return m.listDueFunc(ctx, ownerID, due, limit)
}

func (m *mockCardRepo) ListByDeck(ctx context.Context, ownerID uuid.UUID, deck string) ([]*domain.Card, error) {
	return m.listByDeckFunc(ctx, ownerID, deck)
}

func (m *mockCardRepo) Update(ctx context.Context, c *domain.Card) error {
	return m.updateFunc(ctx, c)
}

func (m *mockCardRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.deleteFunc(ctx, ownerID, id)
}

// ---------------------------------------------------------------------------
// Mock BattleRepository
// ---------------------------------------------------------------------------

type mockBattleRepo struct {
	createFunc     func(ctx context.Context, b *domain.Battle) error
	getByIDFunc    func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Battle, error)
	listActiveFunc func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Battle, error)
	updateFunc     func(ctx context.Context, b *domain.Battle) error
}

func (m *mockBattleRepo) Create(ctx context.Context, b *domain.Battle) error {
	return m.createFunc(ctx, b)
}

func (m *mockBattleRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Battle, error) {
	return m.getByIDFunc(ctx, ownerID, id)
}

func (m *mockBattleRepo) ListActive(ctx context.Context, ownerID uuid.UUID) ([]*domain.Battle, error) {
	return m.listActiveFunc(ctx, ownerID)
}

func (m *mockBattleRepo) Update(ctx context.Context, b *domain.Battle) error {
	return m.updateFunc(ctx, b)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, email, password, name string) (*domain.User, error)
	loginFunc        func(ctx context.Context, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock TreeService
// ---------------------------------------------------------------------------

type mockTreeService struct {
	createNodeFunc      func(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, title, description string) (*domain.TaskNode, error)
	listChildrenFunc    func(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*domain.TaskNode, error)
	getNodeFunc         func(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error)
	editNodeFunc        func(ctx context.Context, ownerID, id uuid.UUID, params tasktree.EditNodeParams) (*domain.TaskNode, error)
	advanceStatusFunc   func(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error)
	setProgressFunc     func(ctx context.Context, ownerID, id uuid.UUID, percentage int) (*domain.TaskNode, error)
	accumulateTimeFunc  func(ctx context.Context, ownerID, id uuid.UUID, deltaMillis int64) (*domain.TaskNode, error)
	resetTimeFunc       func(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error)
	moveNodeFunc        func(ctx context.Context, ownerID, id uuid.UUID, newParentID *uuid.UUID) (*domain.TaskNode, error)
	reorderChildrenFunc func(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, ids []uuid.UUID) error
	deleteSubtreeFunc   func(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
	subtreeStatsFunc    func(ctx context.Context, ownerID, id uuid.UUID) (*domain.SubtreeStats, error)
}

func (m *mockTreeService) CreateNode(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, title, description string) (*domain.TaskNode, error) {
	return m.createNodeFunc(ctx, ownerID, parentID, title, description)
}

func (m *mockTreeService) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]*domain.TaskNode, error) {
	return m.listChildrenFunc(ctx, ownerID, parentID)
}

func (m *mockTreeService) GetNode(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	return m.getNodeFunc(ctx, ownerID, id)
}

func (m *mockTreeService) EditNode(ctx context.Context, ownerID, id uuid.UUID, params tasktree.EditNodeParams) (*domain.TaskNode, error) {
	return m.editNodeFunc(ctx, ownerID, id, params)
}

func (m *mockTreeService) AdvanceStatus(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	return m.advanceStatusFunc(ctx, ownerID, id)
}

func (m *mockTreeService) SetProgress(ctx context.Context, ownerID, id uuid.UUID, percentage int) (*domain.TaskNode, error) {
	return m.setProgressFunc(ctx, ownerID, id, percentage)
}

func (m *mockTreeService) AccumulateTime(ctx context.Context, ownerID, id uuid.UUID, deltaMillis int64) (*domain.TaskNode, error) {
	return m.accumulateTimeFunc(ctx, ownerID, id, deltaMillis)
}

func (m *mockTreeService) ResetTime(ctx context.Context, ownerID, id uuid.UUID) (*domain.TaskNode, error) {
	return m.resetTimeFunc(ctx, ownerID, id)
}

func (m *mockTreeService) MoveNode(ctx context.Context, ownerID, id uuid.UUID, newParentID *uuid.UUID) (*domain.TaskNode, error) {
	return m.moveNodeFunc(ctx, ownerID, id, newParentID)
}

func (m *mockTreeService) ReorderChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, ids []uuid.UUID) error {
	return m.reorderChildrenFunc(ctx, ownerID, parentID, ids)
}

func (m *mockTreeService) DeleteSubtree(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	return m.deleteSubtreeFunc(ctx, ownerID, id)
}

func (m *mockTreeService) SubtreeStats(ctx context.Context, ownerID, id uuid.UUID) (*domain.SubtreeStats, error) {
	return m.subtreeStatsFunc(ctx, ownerID, id)
}

// ---------------------------------------------------------------------------
// Mock EventPublisher
// ---------------------------------------------------------------------------

type mockPublisher struct {
	publishFunc func(ctx context.Context, channel string, payload []byte) error
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if m.publishFunc == nil {
		return nil
	}
	return m.publishFunc(ctx, channel, payload)
}
