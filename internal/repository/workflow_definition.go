package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// WorkflowDefinitionRepository stores definitions with their ordered states and actions as JSON columns.
type WorkflowDefinitionRepository struct {
	db *sql.DB
}

func NewWorkflowDefinitionRepository(db *sql.DB) *WorkflowDefinitionRepository {
	return &WorkflowDefinitionRepository{db: db}
}

// Save inserts a new workflow definition. Definitions are immutable once stored.
func (r *WorkflowDefinitionRepository) Save(ctx context.Context, def *domain.WorkflowDef) error {
	states, err := json.Marshal(def.States)
	if err != nil {
		return fmt.Errorf("marshal states: %w", err)
	}
	actions, err := json.Marshal(def.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflow_definitions (id, states, actions, created)
		VALUES (` + placeholders(1, 4) + `)
	`
	_, err = r.db.ExecContext(ctx, query, def.ID, string(states), string(actions), formatDateInDatabase(def.Created))
	return err
}

// FindByID fetches a workflow definition by id, returning nil when it does not exist.
func (r *WorkflowDefinitionRepository) FindByID(ctx context.Context, id string) (*domain.WorkflowDef, error) {
	query := `
		SELECT id, states, actions, created
		FROM workflow_definitions WHERE id = ` + placeholder(1) + `
	`
	def, err := scanDefinition(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// FindAll returns all workflow definitions in creation order.
func (r *WorkflowDefinitionRepository) FindAll(ctx context.Context) ([]domain.WorkflowDef, error) {
	query := `
		SELECT id, states, actions, created
		FROM workflow_definitions
		ORDER BY created, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]domain.WorkflowDef, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func scanDefinition(row rowScanner) (*domain.WorkflowDef, error) {
	var def domain.WorkflowDef
	var states, actions string
	if err := row.Scan(&def.ID, &states, &actions, &def.Created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(states), &def.States); err != nil {
		return nil, fmt.Errorf("unmarshal states of %s: %w", def.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &def.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions of %s: %w", def.ID, err)
	}
	def.Created = def.Created.UTC()
	return &def, nil
}
