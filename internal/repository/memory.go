package repository

import (
	"context"
	"sync"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// MemoryStore keeps definitions and instances in id-indexed maps. Callers always receive copies,
// so mutating a returned value never changes the store. Insertion order is kept for listings.
type MemoryStore struct {
	defMu         sync.RWMutex
	definitions   map[string]*domain.WorkflowDef
	definitionIDs []string

	instMu      sync.RWMutex
	instances   map[string]*domain.WorkflowInstance
	instanceIDs []string

	// persistMu spans reading the store and writing the file so snapshots land in read order.
	persistMu sync.Mutex
	snapshot  *FileSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		definitions: make(map[string]*domain.WorkflowDef),
		instances:   make(map[string]*domain.WorkflowInstance),
	}
}

// NewMemoryStoreWithSnapshot returns a store loaded from the snapshot file, which Persist rewrites.
func NewMemoryStoreWithSnapshot(snapshot *FileSnapshot) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.snapshot = snapshot
	data, err := snapshot.Load()
	if err != nil {
		return nil, err
	}
	for i := range data.Definitions {
		d := data.Definitions[i]
		if _, ok := s.definitions[d.ID]; !ok {
			s.definitionIDs = append(s.definitionIDs, d.ID)
		}
		s.definitions[d.ID] = &d
	}
	for i := range data.Instances {
		inst := data.Instances[i]
		if _, ok := s.instances[inst.ID]; !ok {
			s.instanceIDs = append(s.instanceIDs, inst.ID)
		}
		s.instances[inst.ID] = &inst
	}
	return s, nil
}

// Definitions returns the definition side of the store as an engine.DefinitionRepo.
func (s *MemoryStore) Definitions() *MemoryDefinitions { return (*MemoryDefinitions)(s) }

// Instances returns the instance side of the store as an engine.InstanceRepo.
func (s *MemoryStore) Instances() *MemoryInstances { return (*MemoryInstances)(s) }

// Persist writes a snapshot of the whole store when a snapshot file is configured.
func (s *MemoryStore) Persist(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	defs, err := s.Definitions().FindAll(ctx)
	if err != nil {
		return err
	}
	insts, err := s.Instances().FindAll(ctx)
	if err != nil {
		return err
	}
	return s.snapshot.Save(SnapshotData{Definitions: defs, Instances: insts})
}

type MemoryDefinitions MemoryStore

func (r *MemoryDefinitions) Save(_ context.Context, def *domain.WorkflowDef) error {
	r.defMu.Lock()
	defer r.defMu.Unlock()
	if _, ok := r.definitions[def.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.definitions[def.ID] = def.Clone()
	r.definitionIDs = append(r.definitionIDs, def.ID)
	return nil
}

func (r *MemoryDefinitions) FindByID(_ context.Context, id string) (*domain.WorkflowDef, error) {
	r.defMu.RLock()
	defer r.defMu.RUnlock()
	return r.definitions[id].Clone(), nil
}

func (r *MemoryDefinitions) FindAll(_ context.Context) ([]domain.WorkflowDef, error) {
	r.defMu.RLock()
	defer r.defMu.RUnlock()
	defs := make([]domain.WorkflowDef, 0, len(r.definitionIDs))
	for _, id := range r.definitionIDs {
		defs = append(defs, *r.definitions[id].Clone())
	}
	return defs, nil
}

type MemoryInstances MemoryStore

func (r *MemoryInstances) Save(_ context.Context, inst *domain.WorkflowInstance) error {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	if _, ok := r.instances[inst.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.instances[inst.ID] = inst.Clone()
	r.instanceIDs = append(r.instanceIDs, inst.ID)
	return nil
}

func (r *MemoryInstances) FindByID(_ context.Context, id string) (*domain.WorkflowInstance, error) {
	r.instMu.RLock()
	defer r.instMu.RUnlock()
	return r.instances[id].Clone(), nil
}

func (r *MemoryInstances) FindAll(_ context.Context) ([]domain.WorkflowInstance, error) {
	r.instMu.RLock()
	defer r.instMu.RUnlock()
	insts := make([]domain.WorkflowInstance, 0, len(r.instanceIDs))
	for _, id := range r.instanceIDs {
		insts = append(insts, *r.instances[id].Clone())
	}
	return insts, nil
}

// UpdateState replaces the stored instance when its version still equals expectedVersion.
func (r *MemoryInstances) UpdateState(_ context.Context, inst *domain.WorkflowInstance, expectedVersion int64) error {
	r.instMu.Lock()
	defer r.instMu.Unlock()
	current, ok := r.instances[inst.ID]
	if !ok || current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	r.instances[inst.ID] = inst.Clone()
	return nil
}
