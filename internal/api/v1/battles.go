package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grovehq/grove/internal/domain"
	"github.com/grovehq/grove/internal/server/middleware"
	redisstore "github.com/grovehq/grove/internal/store/redis"
)

type CreateBattleInput struct {
	Body struct {
		NodeID     *uuid.UUID `json:"node_id,omitempty" doc:"Task node credited with the elapsed time on finish"`
		DurationMS int64      `json:"duration_ms" minimum:"1000" doc:"Countdown duration in milliseconds"`
		Start      bool       `json:"start,omitempty" doc:"Start the countdown immediately"`
	}
}

type CreateBattleOutput struct {
	Body *domain.Battle
}

type GetBattleInput struct {
	ID uuid.UUID `path:"id" doc:"Battle ID"`
}

type GetBattleOutput struct {
	Body *domain.Battle
}

type ListBattlesOutput struct {
	Body []*domain.Battle
}

type BattleActionInput struct {
	ID uuid.UUID `path:"id" doc:"Battle ID"`
}

type BattleActionOutput struct {
	Body *domain.Battle
}

type FinishBattleOutput struct {
	Body struct {
		Battle    *domain.Battle `json:"battle"`
		ElapsedMS int64          `json:"elapsed_ms"`
	}
}

// BattleEvent is the payload published on the owner's battle channel.
type BattleEvent struct {
	Action      string    `json:"action"`
	BattleID    uuid.UUID `json:"battle_id"`
	RemainingMS int64     `json:"remaining_ms"`
	At          time.Time `json:"at"`
}

func battleError(err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("battle not found")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}

func publishBattleEvent(ctx context.Context, events EventPublisher, ownerID uuid.UUID, action string, b *domain.Battle, now time.Time) {
	if events == nil {
		return
	}
	payload, err := json.Marshal(BattleEvent{
		Action:      action,
		BattleID:    b.ID,
		RemainingMS: b.RemainingAt(now),
		At:          now,
	})
	if err != nil {
		log.Warn().Err(err).Msg("battles: failed to marshal battle event")
		return
	}
	if err := events.Publish(ctx, redisstore.BattleChannel(ownerID), payload); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("battles: failed to publish battle event")
	}
}

func RegisterBattleRoutes(api huma.API, store DataStore, tree TreeService, events EventPublisher) {
	huma.Register(api, huma.Operation{
		OperationID: "create-battle",
		Method:      http.MethodPost,
		Path:        "/battles",
		Summary:     "Create a battle timer",
		Tags:        []string{"Battles"},
	}, func(ctx context.Context, input *CreateBattleInput) (*CreateBattleOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		if input.Body.NodeID != nil {
			if _, err := tree.GetNode(ctx, ownerID, *input.Body.NodeID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, huma.Error404NotFound("node not found")
				}
				return nil, huma.Error500InternalServerError("failed to validate node", err)
			}
		}

		now := time.Now()
		b, err := domain.NewBattle(ownerID, input.Body.NodeID, input.Body.DurationMS, now)
		if err != nil {
			return nil, battleError(err, "failed to create battle")
		}
		if input.Body.Start {
			if err := b.Start(now); err != nil {
				return nil, battleError(err, "failed to start battle")
			}
		}

		if err := store.Battles().Create(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to create battle", err)
		}

		if b.Status == domain.BattleStatusRunning {
			publishBattleEvent(ctx, events, ownerID, "started", b, now)
		}

		return &CreateBattleOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-battle",
		Method:      http.MethodGet,
		Path:        "/battles/{id}",
		Summary:     "Get a battle with live remaining time",
		Tags:        []string{"Battles"},
	}, func(ctx context.Context, input *GetBattleInput) (*GetBattleOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		b, err := store.Battles().GetByID(ctx, ownerID, input.ID)
		if err != nil {
			return nil, battleError(err, "failed to get battle")
		}

		// Report the live countdown; the stored snapshot stays untouched.
		b.RemainingMS = b.RemainingAt(time.Now())

		return &GetBattleOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-battles",
		Method:      http.MethodGet,
		Path:        "/battles",
		Summary:     "List active battles",
		Tags:        []string{"Battles"},
	}, func(ctx context.Context, _ *struct{}) (*ListBattlesOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		battles, err := store.Battles().ListActive(ctx, ownerID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list battles", err)
		}

		now := time.Now()
		for _, b := range battles {
			b.RemainingMS = b.RemainingAt(now)
		}

		return &ListBattlesOutput{Body: battles}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-battle",
		Method:      http.MethodPost,
		Path:        "/battles/{id}/start",
		Summary:     "Start a pending battle",
		Tags:        []string{"Battles"},
	}, battleAction(store, events, "started", func(b *domain.Battle, now time.Time) error {
		return b.Start(now)
	}))

	huma.Register(api, huma.Operation{
		OperationID: "pause-battle",
		Method:      http.MethodPost,
		Path:        "/battles/{id}/pause",
		Summary:     "Pause a running battle",
		Tags:        []string{"Battles"},
	}, battleAction(store, events, "paused", func(b *domain.Battle, now time.Time) error {
		return b.Pause(now)
	}))

	huma.Register(api, huma.Operation{
		OperationID: "resume-battle",
		Method:      http.MethodPost,
		Path:        "/battles/{id}/resume",
		Summary:     "Resume a paused battle",
		Tags:        []string{"Battles"},
	}, battleAction(store, events, "resumed", func(b *domain.Battle, now time.Time) error {
		return b.Resume(now)
	}))

	huma.Register(api, huma.Operation{
		OperationID: "finish-battle",
		Method:      http.MethodPost,
		Path:        "/battles/{id}/finish",
		Summary:     "Finish a battle and credit elapsed time to its node",
		Tags:        []string{"Battles"},
	}, func(ctx context.Context, input *BattleActionInput) (*FinishBattleOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		b, err := store.Battles().GetByID(ctx, ownerID, input.ID)
		if err != nil {
			return nil, battleError(err, "failed to get battle")
		}

		now := time.Now()
		elapsed, err := b.Finish(now)
		if err != nil {
			return nil, battleError(err, "failed to finish battle")
		}

		if err := store.Battles().Update(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to update battle", err)
		}

		// Credit the focus time to the linked node. The battle is already
		// finished; a failed credit is reported, not rolled back.
		if b.NodeID != nil && elapsed > 0 {
			if _, err := tree.AccumulateTime(ctx, ownerID, *b.NodeID, elapsed); err != nil {
				log.Warn().Err(err).Str("battle_id", b.ID.String()).Msg("battles: failed to credit elapsed time")
			}
		}

		publishBattleEvent(ctx, events, ownerID, "finished", b, now)

		out := &FinishBattleOutput{}
		out.Body.Battle = b
		out.Body.ElapsedMS = elapsed
		return out, nil
	})
}

// battleAction builds a handler for the start/pause/resume transitions, which
// share the same fetch-mutate-update-publish shape.
func battleAction(store DataStore, events EventPublisher, action string, apply func(*domain.Battle, time.Time) error) func(context.Context, *BattleActionInput) (*BattleActionOutput, error) {
	return func(ctx context.Context, input *BattleActionInput) (*BattleActionOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		b, err := store.Battles().GetByID(ctx, ownerID, input.ID)
		if err != nil {
			return nil, battleError(err, "failed to get battle")
		}

		now := time.Now()
		if err := apply(b, now); err != nil {
			return nil, battleError(err, "failed to "+action)
		}

		if err := store.Battles().Update(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to update battle", err)
		}

		publishBattleEvent(ctx, events, ownerID, action, b, now)

		return &BattleActionOutput{Body: b}, nil
	}
}
