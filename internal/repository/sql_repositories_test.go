package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/RealZimboGuy/gopherstate/internal/config"
	"github.com/RealZimboGuy/gopherstate/internal/migrations"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := migrations.FS.ReadFile("sqllite3/000001_init.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	return db
}

func TestSQLDefinitionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowDefinitionRepository(openSQLite(t))

	require.NoError(t, repo.Save(ctx, sampleDefinition("one")))
	second := sampleDefinition("two")
	second.Created = t0.Add(time.Second)
	require.NoError(t, repo.Save(ctx, second))
	assert.Error(t, repo.Save(ctx, sampleDefinition("one")))

	got, err := repo.FindByID(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, sampleDefinition("one"), got)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "one", all[0].ID)
	assert.Equal(t, "two", all[1].ID)
}

func TestSQLInstanceRepository(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, NewWorkflowDefinitionRepository(db).Save(ctx, sampleDefinition("one")))
	repo := NewWorkflowInstanceRepository(db)

	inst := sampleInstance("i-1", "one")
	require.NoError(t, repo.Save(ctx, inst))

	got, err := repo.FindByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, inst, got)

	at := t0.Add(2500 * time.Millisecond)
	moved := advance(inst, at)
	require.NoError(t, repo.UpdateState(ctx, moved, 1))
	assert.ErrorIs(t, repo.UpdateState(ctx, advance(inst, at), 1), domain.ErrVersionConflict)

	got, err = repo.FindByID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, moved, got)
	assert.Equal(t, at, got.EnteredStateAt, "sub-second precision survives the round trip")

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].History, 1)
}

func TestSQLHistoryRepository_RejectsDuplicatePosition(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, NewWorkflowDefinitionRepository(db).Save(ctx, sampleDefinition("one")))
	require.NoError(t, NewWorkflowInstanceRepository(db).Save(ctx, sampleInstance("i-1", "one")))

	history := NewWorkflowHistoryRepository(db)
	entry := domain.HistoryEntry{ActionID: "finish", Timestamp: t0}
	require.NoError(t, history.Append(ctx, nil, "i-1", 0, entry))
	assert.Error(t, history.Append(ctx, nil, "i-1", 0, entry))

	entries, err := history.FindAllByInstanceID(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoryEntry{entry}, entries)
}

func TestCachedDefinitionRepository(t *testing.T) {
	ctx := context.Background()
	calls := 0
	inner := NewMemoryStore().Definitions()
	require.NoError(t, inner.Save(ctx, sampleDefinition("one")))

	cached := NewCachedDefinitionRepository(countingDefinitions{inner, &calls}, time.Minute)

	for i := 0; i < 3; i++ {
		def, err := cached.FindByID(ctx, "one")
		require.NoError(t, err)
		assert.Equal(t, "one", def.ID)
		def.States[0].Name = "mutated"
	}
	assert.Equal(t, 1, calls)

	def, err := cached.FindByID(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "Start", def.States[0].Name)

	missing, err := cached.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, cached.Save(ctx, sampleDefinition("two")))
	_, err = cached.FindByID(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "saved definitions are served from the cache")
}

type countingDefinitions struct {
	*MemoryDefinitions
	calls *int
}

func (c countingDefinitions) FindByID(ctx context.Context, id string) (*domain.WorkflowDef, error) {
	*c.calls++
	return c.MemoryDefinitions.FindByID(ctx, id)
}
