package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// ExecutionRepository is the PostgreSQL execution record repository.
type ExecutionRepository struct {
	db *sql.DB
}

func (r *ExecutionRepository) Create(ctx context.Context, record *models.ExecutionRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if record.Status == "" {
		record.Status = models.ExecutionStatusPending
	}

	inputs, err := json.Marshal(record.Inputs)
	if err != nil {
		return &persistence.ExecutionError{Op: "Create", ExecutionID: record.ID, Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, agent_id, status, inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.WorkflowID, record.AgentID, record.Status, inputs, record.CreatedAt)
	if err != nil {
		return &persistence.ExecutionError{Op: "Create", ExecutionID: record.ID, Err: err}
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, agent_id, status, inputs, outputs, error, created_at, started_at, completed_at
		FROM executions WHERE id = $1
	`, id)

	var (
		record          models.ExecutionRecord
		inputs, outputs []byte
		errorMessage    sql.NullString
	)

	err := row.Scan(
		&record.ID, &record.WorkflowID, &record.AgentID, &record.Status,
		&inputs, &outputs, &errorMessage,
		&record.CreatedAt, &record.StartedAt, &record.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: err}
	}

	record.Error = errorMessage.String

	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &record.Inputs); err != nil {
			return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: err}
		}
	}

	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &record.Outputs); err != nil {
			return nil, &persistence.ExecutionError{Op: "GetByID", ExecutionID: id, Err: err}
		}
	}

	return &record, nil
}

func (r *ExecutionRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status models.ExecutionStatus,
	errorMessage string,
) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE executions SET
			status = $2,
			error = NULLIF($3, ''),
			started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`, id, status, errorMessage)
	if err != nil {
		return &persistence.ExecutionError{Op: "UpdateStatus", ExecutionID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ExecutionError{Op: "UpdateStatus", ExecutionID: id, Err: err}
	}

	if affected == 0 {
		return fmt.Errorf("%w or %w: %s", persistence.ErrExecutionNotFound, persistence.ErrTerminalStatus, id)
	}

	return nil
}

func (r *ExecutionRepository) SetOutputs(ctx context.Context, id string, outputs map[string]any) error {
	payload, err := json.Marshal(outputs)
	if err != nil {
		return &persistence.ExecutionError{Op: "SetOutputs", ExecutionID: id, Err: err}
	}

	result, err := r.db.ExecContext(ctx, `UPDATE executions SET outputs = $2 WHERE id = $1`, id, payload)
	if err != nil {
		return &persistence.ExecutionError{Op: "SetOutputs", ExecutionID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ExecutionError{Op: "SetOutputs", ExecutionID: id, Err: err}
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}
