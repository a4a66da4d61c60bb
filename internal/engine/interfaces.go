package engine

import (
	"context"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// DefinitionRepo defines the interface for workflow definition persistence.
// FindByID returns (nil, nil) when the definition does not exist.
type DefinitionRepo interface {
	Save(ctx context.Context, def *domain.WorkflowDef) error
	FindByID(ctx context.Context, id string) (*domain.WorkflowDef, error)
	FindAll(ctx context.Context) ([]domain.WorkflowDef, error)
}

// InstanceRepo defines the interface for workflow instance persistence.
// FindByID returns (nil, nil) when the instance does not exist.
type InstanceRepo interface {
	Save(ctx context.Context, inst *domain.WorkflowInstance) error
	FindByID(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	FindAll(ctx context.Context) ([]domain.WorkflowInstance, error)
	// UpdateState stores the new state, dwell baseline and last history entry of inst,
	// provided the stored version still equals expectedVersion. Otherwise it returns domain.ErrVersionConflict.
	UpdateState(ctx context.Context, inst *domain.WorkflowInstance, expectedVersion int64) error
}

// Persister is signalled after every successful mutation. Failures are the store's concern.
type Persister interface {
	Persist(ctx context.Context) error
}

// TransitionListener is notified after a transition has been committed.
type TransitionListener interface {
	OnTransition(ctx context.Context, event domain.TransitionEvent) error
}

type noopPersister struct{}

func (noopPersister) Persist(context.Context) error { return nil }
