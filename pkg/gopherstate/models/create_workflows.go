package models

import (
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// CreateWorkflowRequest is the payload for creating a workflow definition.
type CreateWorkflowRequest struct {
	ID      string          `json:"id"`
	States  []domain.State  `json:"states" validate:"required,dive"`
	Actions []domain.Action `json:"actions" validate:"dive"`
}

func (r CreateWorkflowRequest) ToDefinition() *domain.WorkflowDef {
	return &domain.WorkflowDef{ID: r.ID, States: r.States, Actions: r.Actions}
}

// StartInstanceRequest starts a new instance of a definition.
// DefinitionID may also be supplied as the definitionId query parameter.
type StartInstanceRequest struct {
	DefinitionID string `json:"definitionId" validate:"required"`
}

// ListResponse wraps collections returned by list endpoints.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
