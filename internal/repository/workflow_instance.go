package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

const ALL_INSTANCE_COLUMNS = ` id, workflow_definition_id, current_state_id, entered_state_at,
		       version, created, modified `

// WorkflowInstanceRepository stores instances; their history lives in workflow_history.
type WorkflowInstanceRepository struct {
	db      *sql.DB
	history *WorkflowHistoryRepository
}

func NewWorkflowInstanceRepository(db *sql.DB) *WorkflowInstanceRepository {
	return &WorkflowInstanceRepository{db: db, history: NewWorkflowHistoryRepository(db)}
}

// Save inserts a new instance together with any history it already carries.
func (r *WorkflowInstanceRepository) Save(ctx context.Context, inst *domain.WorkflowInstance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO workflow_instances (` + ALL_INSTANCE_COLUMNS + `) VALUES (` + placeholders(1, 7) + `)`
	_, err = tx.ExecContext(ctx, query,
		inst.ID,
		inst.WorkflowDefinitionID,
		inst.CurrentStateID,
		formatDateInDatabase(inst.EnteredStateAt),
		inst.Version,
		formatDateInDatabase(inst.Created),
		formatDateInDatabase(inst.Modified),
	)
	if err != nil {
		return err
	}
	for i, e := range inst.History {
		if err := r.history.Append(ctx, tx, inst.ID, i, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FindByID loads an instance with its full history, returning nil when it does not exist.
func (r *WorkflowInstanceRepository) FindByID(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	query := `
		SELECT ` + ALL_INSTANCE_COLUMNS + `
		FROM workflow_instances WHERE id = ` + placeholder(1) + `
	`
	inst, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	inst.History, err = r.history.FindAllByInstanceID(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", inst.ID, err)
	}
	return inst, nil
}

// FindAll returns every instance in creation order.
func (r *WorkflowInstanceRepository) FindAll(ctx context.Context) ([]domain.WorkflowInstance, error) {
	query := `
		SELECT ` + ALL_INSTANCE_COLUMNS + `
		FROM workflow_instances
		ORDER BY created, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	instances := make([]domain.WorkflowInstance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range instances {
		h, err := r.history.FindAllByInstanceID(ctx, instances[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load history of %s: %w", instances[i].ID, err)
		}
		instances[i].History = h
	}
	return instances, nil
}

// UpdateState moves the stored instance to inst's state only if nobody else changed it since
// expectedVersion was read, and appends inst's newest history entry in the same transaction.
func (r *WorkflowInstanceRepository) UpdateState(ctx context.Context, inst *domain.WorkflowInstance, expectedVersion int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE workflow_instances
		SET current_state_id = ` + placeholder(1) + `,
		    entered_state_at = ` + placeholder(2) + `,
		    version = ` + placeholder(3) + `,
		    modified = ` + placeholder(4) + `
		WHERE id = ` + placeholder(5) + ` AND version = ` + placeholder(6)
	res, err := tx.ExecContext(ctx, query,
		inst.CurrentStateID,
		formatDateInDatabase(inst.EnteredStateAt),
		inst.Version,
		formatDateInDatabase(inst.Modified),
		inst.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		slog.WarnContext(ctx, "Instance version changed underneath update", "instance_id", inst.ID, "expected_version", expectedVersion)
		return domain.ErrVersionConflict
	}

	if last := inst.LastHistoryEntry(); last != nil {
		if err := r.history.Append(ctx, tx, inst.ID, len(inst.History)-1, *last); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanInstance(row rowScanner) (*domain.WorkflowInstance, error) {
	var inst domain.WorkflowInstance
	err := row.Scan(
		&inst.ID,
		&inst.WorkflowDefinitionID,
		&inst.CurrentStateID,
		&inst.EnteredStateAt,
		&inst.Version,
		&inst.Created,
		&inst.Modified,
	)
	if err != nil {
		return nil, err
	}
	inst.EnteredStateAt = inst.EnteredStateAt.UTC()
	inst.Created = inst.Created.UTC()
	inst.Modified = inst.Modified.UTC()
	return &inst, nil
}
