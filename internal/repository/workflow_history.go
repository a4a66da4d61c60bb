package repository

import (
	"context"
	"database/sql"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WorkflowHistoryRepository persists the append-only action history of instances.
// It expects the following table schema:
//
//	workflow_history(id PK, instance_id VARCHAR, seq INT, action_id VARCHAR, date_time TIMESTAMP,
//	                 UNIQUE(instance_id, seq))
type WorkflowHistoryRepository struct {
	db *sql.DB
}

func NewWorkflowHistoryRepository(db *sql.DB) *WorkflowHistoryRepository {
	return &WorkflowHistoryRepository{db: db}
}

// Append inserts one history entry at position seq. The unique (instance_id, seq) key
// rejects a second writer appending at the same position.
func (r *WorkflowHistoryRepository) Append(ctx context.Context, ex execer, instanceID string, seq int, e domain.HistoryEntry) error {
	if ex == nil {
		ex = r.db
	}
	query := `
		INSERT INTO workflow_history (instance_id, seq, action_id, date_time)
		VALUES (` + placeholders(1, 4) + `)
	`
	_, err := ex.ExecContext(ctx, query, instanceID, seq, e.ActionID, formatDateInDatabase(e.Timestamp))
	return err
}

// FindAllByInstanceID returns the history of an instance in execution order.
func (r *WorkflowHistoryRepository) FindAllByInstanceID(ctx context.Context, instanceID string) ([]domain.HistoryEntry, error) {
	query := `
		SELECT action_id, date_time
		FROM workflow_history
		WHERE instance_id = ` + placeholder(1) + `
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.ActionID, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
