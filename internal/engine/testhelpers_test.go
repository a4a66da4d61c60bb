package engine

import (
	"context"
	"sync"
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// abcDefinition is A (initial) -> B -> C (final), with a 5 second dwell on leaving A.
func abcDefinition() *domain.WorkflowDef {
	return &domain.WorkflowDef{
		ID: "abc",
		States: []domain.State{
			{ID: "A", Name: "Start", IsInitial: true, Enabled: true},
			{ID: "B", Name: "Middle", Enabled: true},
			{ID: "C", Name: "End", IsFinal: true, Enabled: true},
		},
		Actions: []domain.Action{
			{ID: "toB", Name: "To B", Enabled: true, FromStates: []string{"A"}, ToState: "B", MinTimeInStateSeconds: 5},
			{ID: "toC", Name: "To C", Enabled: true, FromStates: []string{"B"}, ToState: "C"},
		},
	}
}

// MockDefinitionRepo implements DefinitionRepo for testing
type MockDefinitionRepo struct {
	SaveFunc     func(ctx context.Context, def *domain.WorkflowDef) error
	FindByIDFunc func(ctx context.Context, id string) (*domain.WorkflowDef, error)
	FindAllFunc  func(ctx context.Context) ([]domain.WorkflowDef, error)
}

func (m *MockDefinitionRepo) Save(ctx context.Context, def *domain.WorkflowDef) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, def)
	}
	return nil
}
func (m *MockDefinitionRepo) FindByID(ctx context.Context, id string) (*domain.WorkflowDef, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockDefinitionRepo) FindAll(ctx context.Context) ([]domain.WorkflowDef, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return nil, nil
}

// MockInstanceRepo implements InstanceRepo for testing
type MockInstanceRepo struct {
	SaveFunc        func(ctx context.Context, inst *domain.WorkflowInstance) error
	FindByIDFunc    func(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	FindAllFunc     func(ctx context.Context) ([]domain.WorkflowInstance, error)
	UpdateStateFunc func(ctx context.Context, inst *domain.WorkflowInstance, expectedVersion int64) error
}

func (m *MockInstanceRepo) Save(ctx context.Context, inst *domain.WorkflowInstance) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, inst)
	}
	return nil
}
func (m *MockInstanceRepo) FindByID(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}
func (m *MockInstanceRepo) FindAll(ctx context.Context) ([]domain.WorkflowInstance, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return nil, nil
}
func (m *MockInstanceRepo) UpdateState(ctx context.Context, inst *domain.WorkflowInstance, expectedVersion int64) error {
	if m.UpdateStateFunc != nil {
		return m.UpdateStateFunc(ctx, inst, expectedVersion)
	}
	return nil
}

type countingPersister struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingPersister) Persist(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *countingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingListener struct {
	mu     sync.Mutex
	events []domain.TransitionEvent
	err    error
}

func (l *recordingListener) OnTransition(_ context.Context, e domain.TransitionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return l.err
}
