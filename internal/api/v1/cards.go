package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/domain"
	"github.com/grovehq/grove/internal/server/middleware"
)

type CreateCardInput struct {
	Body struct {
		Deck  string `json:"deck,omitempty" maxLength:"255" doc:"Deck name"`
		Front string `json:"front" minLength:"1" doc:"Card front"`
		Back  string `json:"back" minLength:"1" doc:"Card back"`
	}
}

type CreateCardOutput struct {
	Body *domain.Card
}

type ListDueCardsInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum cards to return"`
}

type ListDueCardsOutput struct {
	Body []*domain.Card
}

type ListDeckInput struct {
	Deck string `query:"deck" required:"true" doc:"Deck name"`
}

type ListDeckOutput struct {
	Body []*domain.Card
}

type ReviewCardInput struct {
	ID   uuid.UUID `path:"id" doc:"Card ID"`
	Body struct {
		Grade int `json:"grade" minimum:"0" maximum:"5" doc:"Recall quality, 0 (blackout) to 5 (perfect)"`
	}
}

type ReviewCardOutput struct {
	Body *domain.Card
}

type DeleteCardInput struct {
	ID uuid.UUID `path:"id" doc:"Card ID"`
}

func RegisterCardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-card",
		Method:      http.MethodPost,
		Path:        "/cards",
		Summary:     "Create a flashcard",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *CreateCardInput) (*CreateCardOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		c := domain.NewCard(ownerID, input.Body.Deck, input.Body.Front, input.Body.Back, time.Now())

		if err := store.Cards().Create(ctx, c); err != nil {
			return nil, huma.Error500InternalServerError("failed to create card", err)
		}

		return &CreateCardOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-due-cards",
		Method:      http.MethodGet,
		Path:        "/cards/due",
		Summary:     "List cards due for review",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ListDueCardsInput) (*ListDueCardsOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		cards, err := store.Cards().ListDue(ctx, ownerID, time.Now(), input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list due cards", err)
		}

		return &ListDueCardsOutput{Body: cards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-deck",
		Method:      http.MethodGet,
		Path:        "/cards",
		Summary:     "List all cards in a deck",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ListDeckInput) (*ListDeckOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		cards, err := store.Cards().ListByDeck(ctx, ownerID, input.Deck)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list deck", err)
		}

		return &ListDeckOutput{Body: cards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-card",
		Method:      http.MethodPost,
		Path:        "/cards/{id}/review",
		Summary:     "Record a review and reschedule the card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ReviewCardInput) (*ReviewCardOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		c, err := store.Cards().GetByID(ctx, ownerID, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to get card", err)
		}

		if err := c.Review(input.Body.Grade, time.Now()); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		if err := store.Cards().Update(ctx, c); err != nil {
			return nil, huma.Error500InternalServerError("failed to update card", err)
		}

		return &ReviewCardOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{id}",
		Summary:     "Delete a flashcard",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		if err := store.Cards().Delete(ctx, ownerID, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("card not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete card", err)
		}

		return nil, nil
	})
}
