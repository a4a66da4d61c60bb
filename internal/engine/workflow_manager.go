package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/core"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/RealZimboGuy/gopherstate/internal/engine"

// WorkflowManager stores definitions and instances and serializes transitions per instance.
type WorkflowManager struct {
	DefinitionRepo DefinitionRepo
	InstanceRepo   InstanceRepo
	persister      Persister
	listeners      []TransitionListener
	locks          *instanceLocks
	clock          core.Clock
	tracer         trace.Tracer
	newID          func() string
}

type ManagerOption func(*WorkflowManager)

// WithPersister sets the store signalled after each successful mutation.
func WithPersister(p Persister) ManagerOption {
	return func(wm *WorkflowManager) {
		if p != nil {
			wm.persister = p
		}
	}
}

// WithTransitionListener registers a listener for committed transitions.
func WithTransitionListener(l TransitionListener) ManagerOption {
	return func(wm *WorkflowManager) {
		if l != nil {
			wm.listeners = append(wm.listeners, l)
		}
	}
}

// WithIDGenerator replaces the UUID generator used for new ids.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(wm *WorkflowManager) {
		wm.newID = fn
	}
}

func NewWorkflowManager(definitionRepo DefinitionRepo, instanceRepo InstanceRepo, clock core.Clock, opts ...ManagerOption) *WorkflowManager {
	wm := &WorkflowManager{
		DefinitionRepo: definitionRepo,
		InstanceRepo:   instanceRepo,
		persister:      noopPersister{},
		locks:          newInstanceLocks(),
		clock:          clock,
		tracer:         otel.Tracer(tracerName),
		newID:          func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(wm)
	}
	return wm
}

// CreateDefinition validates def and stores it. An empty id is replaced by a generated one.
func (wm *WorkflowManager) CreateDefinition(ctx context.Context, def *domain.WorkflowDef) (*domain.WorkflowDef, error) {
	ctx, span := wm.tracer.Start(ctx, "WorkflowManager.CreateDefinition")
	defer span.End()

	if err := ValidateDefinition(def); err != nil {
		slog.WarnContext(ctx, "Rejected workflow definition", "error", err)
		return nil, endSpan(span, err)
	}

	def = def.Clone()
	if def.ID == "" {
		def.ID = wm.newID()
	}
	def.Created = wm.clock.Now()
	span.SetAttributes(attribute.String("workflow.definition_id", def.ID))

	existing, err := wm.DefinitionRepo.FindByID(ctx, def.ID)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("lookup definition %s: %w", def.ID, err))
	}
	if existing != nil {
		return nil, endSpan(span, &TransitionError{Op: "CreateDefinition", Message: "Workflow definition already exists.", Err: ErrDefinitionExists})
	}

	if err := wm.DefinitionRepo.Save(ctx, def); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, endSpan(span, &TransitionError{Op: "CreateDefinition", Message: "Workflow definition already exists.", Err: ErrDefinitionExists})
		}
		return nil, endSpan(span, fmt.Errorf("save definition %s: %w", def.ID, err))
	}
	slog.InfoContext(ctx, "Created workflow definition", "definition_id", def.ID, "states", len(def.States), "actions", len(def.Actions))
	wm.persist(ctx)
	return def.Clone(), nil
}

// GetDefinition returns the definition or an error wrapping ErrDefinitionNotFound.
func (wm *WorkflowManager) GetDefinition(ctx context.Context, id string) (*domain.WorkflowDef, error) {
	def, err := wm.DefinitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup definition %s: %w", id, err)
	}
	if def == nil {
		return nil, &TransitionError{Op: "GetDefinition", Message: "Workflow definition not found.", Err: ErrDefinitionNotFound}
	}
	return def, nil
}

func (wm *WorkflowManager) ListDefinitions(ctx context.Context) ([]domain.WorkflowDef, error) {
	return wm.DefinitionRepo.FindAll(ctx)
}

// StartInstance creates an instance of the definition positioned at its initial state.
func (wm *WorkflowManager) StartInstance(ctx context.Context, definitionID string) (*domain.WorkflowInstance, error) {
	ctx, span := wm.tracer.Start(ctx, "WorkflowManager.StartInstance",
		trace.WithAttributes(attribute.String("workflow.definition_id", definitionID)))
	defer span.End()

	def, err := wm.DefinitionRepo.FindByID(ctx, definitionID)
	if err != nil {
		return nil, endSpan(span, fmt.Errorf("lookup definition %s: %w", definitionID, err))
	}

	inst, err := StartInstance(def, wm.newID(), wm.clock.Now())
	if err != nil {
		slog.WarnContext(ctx, "Unable to start workflow instance", "definition_id", definitionID, "error", err)
		return nil, endSpan(span, err)
	}
	span.SetAttributes(attribute.String("workflow.instance_id", inst.ID))

	if err := wm.InstanceRepo.Save(ctx, inst); err != nil {
		return nil, endSpan(span, fmt.Errorf("save instance %s: %w", inst.ID, err))
	}
	slog.InfoContext(ctx, "Started workflow instance", "instance_id", inst.ID, "definition_id", definitionID, "state", inst.CurrentStateID)
	wm.persist(ctx)
	return inst.Clone(), nil
}

// ExecuteAction applies actionID to the instance. Guard evaluation and the store update
// happen under the instance's lock; persistence and listeners are notified after it is released.
func (wm *WorkflowManager) ExecuteAction(ctx context.Context, instanceID string, actionID string) (*domain.WorkflowInstance, error) {
	ctx, span := wm.tracer.Start(ctx, "WorkflowManager.ExecuteAction", trace.WithAttributes(
		attribute.String("workflow.instance_id", instanceID),
		attribute.String("workflow.action_id", actionID),
	))
	defer span.End()

	next, event, err := wm.transition(ctx, instanceID, actionID)
	if err != nil {
		slog.InfoContext(ctx, "Action rejected", "instance_id", instanceID, "action_id", actionID, "kind", KindOf(err), "error", err)
		return nil, endSpan(span, err)
	}

	slog.InfoContext(ctx, "Transitioned workflow instance", "instance_id", instanceID, "action_id", actionID,
		"from", event.FromStateID, "to", event.ToStateID, "version", event.Version)
	span.SetAttributes(attribute.String("workflow.to_state", event.ToStateID))

	wm.persist(ctx)
	for _, l := range wm.listeners {
		if err := l.OnTransition(ctx, event); err != nil {
			slog.WarnContext(ctx, "Transition listener failed", "instance_id", instanceID, "error", err)
		}
	}
	return next, nil
}

func (wm *WorkflowManager) transition(ctx context.Context, instanceID string, actionID string) (*domain.WorkflowInstance, domain.TransitionEvent, error) {
	unlock := wm.locks.Lock(instanceID)
	defer unlock()

	inst, err := wm.InstanceRepo.FindByID(ctx, instanceID)
	if err != nil {
		return nil, domain.TransitionEvent{}, fmt.Errorf("lookup instance %s: %w", instanceID, err)
	}

	var def *domain.WorkflowDef
	if inst != nil {
		def, err = wm.DefinitionRepo.FindByID(ctx, inst.WorkflowDefinitionID)
		if err != nil {
			return nil, domain.TransitionEvent{}, fmt.Errorf("lookup definition %s: %w", inst.WorkflowDefinitionID, err)
		}
	}

	now := wm.clock.Now()
	next, err := ExecuteAction(def, inst, actionID, now)
	if err != nil {
		return nil, domain.TransitionEvent{}, err
	}

	if err := wm.InstanceRepo.UpdateState(ctx, next, inst.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, domain.TransitionEvent{}, &TransitionError{Op: "ExecuteAction", InstanceID: instanceID, ActionID: actionID,
				Message: "Workflow instance was modified concurrently.", Err: ErrConcurrentModification}
		}
		return nil, domain.TransitionEvent{}, fmt.Errorf("update instance %s: %w", instanceID, err)
	}

	event := domain.TransitionEvent{
		InstanceID:           next.ID,
		WorkflowDefinitionID: next.WorkflowDefinitionID,
		ActionID:             actionID,
		FromStateID:          inst.CurrentStateID,
		ToStateID:            next.CurrentStateID,
		Timestamp:            now,
		Version:              next.Version,
	}
	return next.Clone(), event, nil
}

// GetInstance returns the instance or an error wrapping ErrInstanceNotFound.
func (wm *WorkflowManager) GetInstance(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	inst, err := wm.InstanceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup instance %s: %w", id, err)
	}
	if inst == nil {
		return nil, &TransitionError{Op: "GetInstance", InstanceID: id, Message: "Workflow instance not found.", Err: ErrInstanceNotFound}
	}
	return inst, nil
}

func (wm *WorkflowManager) ListInstances(ctx context.Context) ([]domain.WorkflowInstance, error) {
	return wm.InstanceRepo.FindAll(ctx)
}

func (wm *WorkflowManager) persist(ctx context.Context) {
	if err := wm.persister.Persist(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to persist workflow store", "error", err)
	}
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
