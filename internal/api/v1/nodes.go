package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/domain"
	"github.com/grovehq/grove/internal/server/middleware"
	"github.com/grovehq/grove/internal/tasktree"
)

type CreateNodeInput struct {
	Body struct {
		ParentID    *uuid.UUID `json:"parent_id,omitempty" doc:"Parent node ID; omit for a root node"`
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Node title"`
		Description string     `json:"description,omitempty" doc:"Node description"`
	}
}

type CreateNodeOutput struct {
	Body *domain.TaskNode
}

type ListNodesInput struct {
	ParentID uuid.UUID `query:"parent_id" required:"false" format:"uuid" doc:"Parent node ID; omit to list roots"`
}

type ListNodesOutput struct {
	Body []*domain.TaskNode
}

type GetNodeInput struct {
	ID uuid.UUID `path:"id" doc:"Node ID"`
}

type GetNodeOutput struct {
	Body *domain.TaskNode
}

type UpdateNodeInput struct {
	ID   uuid.UUID `path:"id" doc:"Node ID"`
	Body struct {
		Title       *string `json:"title,omitempty" maxLength:"500" doc:"Node title"`
		Description *string `json:"description,omitempty" doc:"Node description"`
	}
}

type UpdateNodeOutput struct {
	Body *domain.TaskNode
}

type AdvanceStatusInput struct {
	ID uuid.UUID `path:"id" doc:"Node ID"`
}

type AdvanceStatusOutput struct {
	Body *domain.TaskNode
}

type SetProgressInput struct {
	ID   uuid.UUID `path:"id" doc:"Node ID"`
	Body struct {
		Percentage int `json:"percentage" minimum:"0" maximum:"100" doc:"Completion percentage"`
	}
}

type SetProgressOutput struct {
	Body *domain.TaskNode
}

type AccumulateTimeInput struct {
	ID   uuid.UUID `path:"id" doc:"Node ID"`
	Body struct {
		DeltaMS int64 `json:"delta_ms" doc:"Elapsed milliseconds to add; callers batch deltas rather than writing once per second"`
	}
}

type AccumulateTimeOutput struct {
	Body *domain.TaskNode
}

type ResetTimeInput struct {
	ID uuid.UUID `path:"id" doc:"Node ID"`
}

type ResetTimeOutput struct {
	Body *domain.TaskNode
}

type MoveNodeInput struct {
	ID   uuid.UUID `path:"id" doc:"Node ID"`
	Body struct {
		ParentID *uuid.UUID `json:"parent_id,omitempty" doc:"New parent node ID; omit to move to root level"`
	}
}

type MoveNodeOutput struct {
	Body *domain.TaskNode
}

type ReorderNodesInput struct {
	Body struct {
		ParentID *uuid.UUID  `json:"parent_id,omitempty" doc:"Parent whose children are reordered; omit for roots"`
		IDs      []uuid.UUID `json:"ids" minItems:"1" doc:"Children in the desired display sequence"`
	}
}

type DeleteNodeInput struct {
	ID uuid.UUID `path:"id" doc:"Node ID"`
}

type DeleteNodeOutput struct {
	Body struct {
		Deleted int64 `json:"deleted" doc:"Number of nodes removed, including descendants"`
	}
}

type NodeStatsInput struct {
	ID uuid.UUID `path:"id" doc:"Node ID"`
}

type NodeStatsOutput struct {
	Body *domain.SubtreeStats
}

// treeError maps lifecycle-service failures onto HTTP problem responses.
// Every failure is surfaced; a rejected precondition never becomes a no-op.
func treeError(err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("node not found")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrInvalidHierarchy):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError(fallback, err)
	}
}

func RegisterNodeRoutes(api huma.API, tree TreeService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-node",
		Method:      http.MethodPost,
		Path:        "/nodes",
		Summary:     "Create a task node",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *CreateNodeInput) (*CreateNodeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.CreateNode(ctx, ownerID, input.Body.ParentID, input.Body.Title, input.Body.Description)
		if err != nil {
			return nil, treeError(err, "failed to create node")
		}

		return &CreateNodeOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-nodes",
		Method:      http.MethodGet,
		Path:        "/nodes",
		Summary:     "List children of a node, or root nodes",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *ListNodesInput) (*ListNodesOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		var parentID *uuid.UUID
		if input.ParentID != uuid.Nil {
			parentID = &input.ParentID
		}

		nodes, err := tree.ListChildren(ctx, ownerID, parentID)
		if err != nil {
			return nil, treeError(err, "failed to list nodes")
		}

		return &ListNodesOutput{Body: nodes}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-node",
		Method:      http.MethodGet,
		Path:        "/nodes/{id}",
		Summary:     "Get a node by ID",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *GetNodeInput) (*GetNodeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.GetNode(ctx, ownerID, input.ID)
		if err != nil {
			return nil, treeError(err, "failed to get node")
		}

		return &GetNodeOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-node",
		Method:      http.MethodPatch,
		Path:        "/nodes/{id}",
		Summary:     "Edit a node's title or description",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *UpdateNodeInput) (*UpdateNodeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.EditNode(ctx, ownerID, input.ID, tasktree.EditNodeParams{
			Title:       input.Body.Title,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, treeError(err, "failed to update node")
		}

		return &UpdateNodeOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-node-status",
		Method:      http.MethodPost,
		Path:        "/nodes/{id}/status",
		Summary:     "Advance the node through the status cycle",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *AdvanceStatusInput) (*AdvanceStatusOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.AdvanceStatus(ctx, ownerID, input.ID)
		if err != nil {
			return nil, treeError(err, "failed to advance status")
		}

		return &AdvanceStatusOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-node-progress",
		Method:      http.MethodPost,
		Path:        "/nodes/{id}/progress",
		Summary:     "Set a node's completion percentage",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *SetProgressInput) (*SetProgressOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.SetProgress(ctx, ownerID, input.ID, input.Body.Percentage)
		if err != nil {
			return nil, treeError(err, "failed to set progress")
		}

		return &SetProgressOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accumulate-node-time",
		Method:      http.MethodPost,
		Path:        "/nodes/{id}/time",
		Summary:     "Add elapsed time to a node",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *AccumulateTimeInput) (*AccumulateTimeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.AccumulateTime(ctx, ownerID, input.ID, input.Body.DeltaMS)
		if err != nil {
			return nil, treeError(err, "failed to accumulate time")
		}

		return &AccumulateTimeOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-node-time",
		Method:      http.MethodPost,
		Path:        "/nodes/{id}/time/reset",
		Summary:     "Reset a node's accumulated time",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *ResetTimeInput) (*ResetTimeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.ResetTime(ctx, ownerID, input.ID)
		if err != nil {
			return nil, treeError(err, "failed to reset time")
		}

		return &ResetTimeOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-node",
		Method:      http.MethodPost,
		Path:        "/nodes/{id}/move",
		Summary:     "Move a node under a new parent",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *MoveNodeInput) (*MoveNodeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		n, err := tree.MoveNode(ctx, ownerID, input.ID, input.Body.ParentID)
		if err != nil {
			return nil, treeError(err, "failed to move node")
		}

		return &MoveNodeOutput{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-nodes",
		Method:      http.MethodPost,
		Path:        "/nodes/reorder",
		Summary:     "Reorder the children of a node",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *ReorderNodesInput) (*struct{}, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		if err := tree.ReorderChildren(ctx, ownerID, input.Body.ParentID, input.Body.IDs); err != nil {
			return nil, treeError(err, "failed to reorder nodes")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-node",
		Method:      http.MethodDelete,
		Path:        "/nodes/{id}",
		Summary:     "Delete a node and its entire subtree",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *DeleteNodeInput) (*DeleteNodeOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		deleted, err := tree.DeleteSubtree(ctx, ownerID, input.ID)
		if err != nil {
			return nil, treeError(err, "failed to delete subtree")
		}

		out := &DeleteNodeOutput{}
		out.Body.Deleted = deleted
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "node-stats",
		Method:      http.MethodGet,
		Path:        "/nodes/{id}/stats",
		Summary:     "Aggregate completion and time across a subtree",
		Tags:        []string{"Nodes"},
	}, func(ctx context.Context, input *NodeStatsInput) (*NodeStatsOutput, error) {
		ownerID, ok := middleware.OwnerIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing owner context")
		}

		stats, err := tree.SubtreeStats(ctx, ownerID, input.ID)
		if err != nil {
			return nil, treeError(err, "failed to compute stats")
		}

		return &NodeStatsOutput{Body: stats}, nil
	})
}
