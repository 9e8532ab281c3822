package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/grovehq/grove/internal/api/v1"
	"github.com/grovehq/grove/internal/domain"
)

// ---------------------------------------------------------------------------
// TestCreateBattle
// ---------------------------------------------------------------------------

func TestCreateBattle(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	nodeID := uuid.New()

	t.Run("happy_path_pending", func(t *testing.T) {
		t.Parallel()

		var createCalled bool
		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				createFunc: func(_ context.Context, b *domain.Battle) error {
					createCalled = true
					assert.Equal(t, ownerID, b.OwnerID)
					assert.Nil(t, b.NodeID)
					assert.Equal(t, int64(1500000), b.DurationMS)
					assert.Equal(t, domain.BattleStatusPending, b.Status)
					return nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles", map[string]any{
			"duration_ms": 1500000,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, createCalled, "store.Battles().Create must be invoked")

		var body domain.Battle
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.BattleStatusPending, body.Status)
		assert.Equal(t, int64(1500000), body.RemainingMS)
	})

	t.Run("immediate_start_publishes_event", func(t *testing.T) {
		t.Parallel()

		var published bool
		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				createFunc: func(_ context.Context, b *domain.Battle) error {
					assert.Equal(t, domain.BattleStatusRunning, b.Status)
					require.NotNil(t, b.StartedAt)
					return nil
				},
			},
		}
		events := &mockPublisher{
			publishFunc: func(_ context.Context, channel string, payload []byte) error {
				published = true
				assert.True(t, strings.HasPrefix(channel, "battle:"), "expected battle channel, got %q", channel)
				assert.Contains(t, string(payload), `"started"`)
				return nil
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, events)

		resp := api.PostCtx(ownerCtx(ownerID), "/battles", map[string]any{
			"duration_ms": 60000,
			"start":       true,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, published, "start event must be published")
	})

	t.Run("linked_node_validated", func(t *testing.T) {
		t.Parallel()

		var nodeLookedUp bool
		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				createFunc: func(_ context.Context, b *domain.Battle) error {
					require.NotNil(t, b.NodeID)
					assert.Equal(t, nodeID, *b.NodeID)
					return nil
				},
			},
		}
		tree := &mockTreeService{
			getNodeFunc: func(_ context.Context, oid, id uuid.UUID) (*domain.TaskNode, error) {
				nodeLookedUp = true
				assert.Equal(t, ownerID, oid)
				assert.Equal(t, nodeID, id)
				return &domain.TaskNode{ID: id, OwnerID: oid}, nil
			},
		}
		v1.RegisterBattleRoutes(api, store, tree, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles", map[string]any{
			"node_id":     nodeID.String(),
			"duration_ms": 60000,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, nodeLookedUp, "linked node must be validated")
	})

	t.Run("linked_node_not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		tree := &mockTreeService{
			getNodeFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.TaskNode, error) {
				return nil, domain.ErrNotFound
			},
		}
		v1.RegisterBattleRoutes(api, &mockDataStore{battles: &mockBattleRepo{}}, tree, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles", map[string]any{
			"node_id":     nodeID.String(),
			"duration_ms": 60000,
		})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("missing_owner", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterBattleRoutes(api, &mockDataStore{battles: &mockBattleRepo{}}, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(context.Background(), "/battles", map[string]any{
			"duration_ms": 60000,
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestBattleTransitions
// ---------------------------------------------------------------------------

func TestBattleTransitions(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	battleID := uuid.New()

	pendingBattle := func() *domain.Battle {
		now := time.Now()
		b, err := domain.NewBattle(ownerID, nil, 60000, now)
		require.NoError(t, err)
		b.ID = battleID
		return b
	}

	t.Run("start_pending", func(t *testing.T) {
		t.Parallel()

		var updateCalled bool
		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, oid, id uuid.UUID) (*domain.Battle, error) {
					assert.Equal(t, ownerID, oid)
					assert.Equal(t, battleID, id)
					return pendingBattle(), nil
				},
				updateFunc: func(_ context.Context, b *domain.Battle) error {
					updateCalled = true
					assert.Equal(t, domain.BattleStatusRunning, b.Status)
					return nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/start")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, updateCalled, "store.Battles().Update must be invoked")
	})

	t.Run("pause_running", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					b := pendingBattle()
					require.NoError(t, b.Start(time.Now()))
					return b, nil
				},
				updateFunc: func(_ context.Context, b *domain.Battle) error {
					assert.Equal(t, domain.BattleStatusPaused, b.Status)
					return nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/pause")

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("pause_pending_conflicts", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					return pendingBattle(), nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/pause")

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("resume_paused", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					now := time.Now()
					b := pendingBattle()
					require.NoError(t, b.Start(now))
					require.NoError(t, b.Pause(now.Add(10*time.Second)))
					return b, nil
				},
				updateFunc: func(_ context.Context, b *domain.Battle) error {
					assert.Equal(t, domain.BattleStatusRunning, b.Status)
					return nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/resume")

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					return nil, domain.ErrNotFound
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/start")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestFinishBattle
// ---------------------------------------------------------------------------

func TestFinishBattle(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	battleID := uuid.New()
	nodeID := uuid.New()

	t.Run("credits_linked_node", func(t *testing.T) {
		t.Parallel()

		var credited bool
		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					now := time.Now()
					b, err := domain.NewBattle(ownerID, &nodeID, 60000, now.Add(-30*time.Second))
					require.NoError(t, err)
					b.ID = battleID
					require.NoError(t, b.Start(now.Add(-30*time.Second)))
					return b, nil
				},
				updateFunc: func(_ context.Context, b *domain.Battle) error {
					assert.Equal(t, domain.BattleStatusFinished, b.Status)
					return nil
				},
			},
		}
		tree := &mockTreeService{
			accumulateTimeFunc: func(_ context.Context, oid, id uuid.UUID, delta int64) (*domain.TaskNode, error) {
				credited = true
				assert.Equal(t, ownerID, oid)
				assert.Equal(t, nodeID, id)
				assert.Greater(t, delta, int64(0))
				return &domain.TaskNode{ID: id, OwnerID: oid, TimeSpentMS: delta}, nil
			},
		}
		v1.RegisterBattleRoutes(api, store, tree, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/finish")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, credited, "elapsed time must be credited to the linked node")

		var body struct {
			Battle    *domain.Battle `json:"battle"`
			ElapsedMS int64          `json:"elapsed_ms"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.BattleStatusFinished, body.Battle.Status)
		assert.Greater(t, body.ElapsedMS, int64(0))
	})

	t.Run("no_linked_node_skips_credit", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					now := time.Now()
					b, err := domain.NewBattle(ownerID, nil, 60000, now)
					require.NoError(t, err)
					b.ID = battleID
					require.NoError(t, b.Start(now))
					return b, nil
				},
				updateFunc: func(_ context.Context, _ *domain.Battle) error { return nil },
			},
		}
		// accumulateTimeFunc left nil: a call would panic the test.
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/finish")

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("finish_pending_conflicts", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					b, err := domain.NewBattle(ownerID, nil, 60000, time.Now())
					require.NoError(t, err)
					return b, nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.PostCtx(ownerCtx(ownerID), "/battles/"+battleID.String()+"/finish")

		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestGetAndListBattles
// ---------------------------------------------------------------------------

func TestGetAndListBattles(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	battleID := uuid.New()

	t.Run("get_reports_live_remaining", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				getByIDFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Battle, error) {
					b, err := domain.NewBattle(ownerID, nil, 60000, time.Now().Add(-45*time.Second))
					require.NoError(t, err)
					b.ID = battleID
					require.NoError(t, b.Start(time.Now().Add(-45*time.Second)))
					return b, nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.GetCtx(ownerCtx(ownerID), "/battles/"+battleID.String())

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Battle
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Less(t, body.RemainingMS, int64(60000))
		assert.GreaterOrEqual(t, body.RemainingMS, int64(0))
	})

	t.Run("list_active", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		store := &mockDataStore{
			battles: &mockBattleRepo{
				listActiveFunc: func(_ context.Context, oid uuid.UUID) ([]*domain.Battle, error) {
					assert.Equal(t, ownerID, oid)
					b, err := domain.NewBattle(oid, nil, 60000, time.Now())
					require.NoError(t, err)
					return []*domain.Battle{b}, nil
				},
			},
		}
		v1.RegisterBattleRoutes(api, store, &mockTreeService{}, &mockPublisher{})

		resp := api.GetCtx(ownerCtx(ownerID), "/battles")

		require.Equal(t, http.StatusOK, resp.Code)

		var body []*domain.Battle
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body, 1)
	})
}
