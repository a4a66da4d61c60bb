package repository

import (
	"context"
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/patrickmn/go-cache"
)

// DefinitionStore is the subset of a definition repository the cache wraps.
type DefinitionStore interface {
	Save(ctx context.Context, def *domain.WorkflowDef) error
	FindByID(ctx context.Context, id string) (*domain.WorkflowDef, error)
	FindAll(ctx context.Context) ([]domain.WorkflowDef, error)
}

// CachedDefinitionRepository is a read-through cache in front of a database backed repository.
// Definitions never change once stored, so entries only expire to bound memory.
type CachedDefinitionRepository struct {
	next  DefinitionStore
	cache *cache.Cache
}

func NewCachedDefinitionRepository(next DefinitionStore, ttl time.Duration) *CachedDefinitionRepository {
	return &CachedDefinitionRepository{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *CachedDefinitionRepository) Save(ctx context.Context, def *domain.WorkflowDef) error {
	if err := r.next.Save(ctx, def); err != nil {
		return err
	}
	r.cache.SetDefault(def.ID, def.Clone())
	return nil
}

func (r *CachedDefinitionRepository) FindByID(ctx context.Context, id string) (*domain.WorkflowDef, error) {
	if v, ok := r.cache.Get(id); ok {
		return v.(*domain.WorkflowDef).Clone(), nil
	}
	def, err := r.next.FindByID(ctx, id)
	if err != nil || def == nil {
		return def, err
	}
	r.cache.SetDefault(id, def.Clone())
	return def, nil
}

func (r *CachedDefinitionRepository) FindAll(ctx context.Context) ([]domain.WorkflowDef, error) {
	return r.next.FindAll(ctx)
}
