package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// CheckpointRepository keeps the latest agent checkpoint per execution.
type CheckpointRepository struct {
	db *sql.DB
}

func (r *CheckpointRepository) Save(ctx context.Context, executionID string, checkpoint *models.Checkpoint) error {
	payload, err := json.Marshal(checkpoint)
	if err != nil {
		return &persistence.ExecutionError{Op: "SaveCheckpoint", ExecutionID: executionID, Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agent_checkpoints (execution_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (execution_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`, executionID, payload)
	if err != nil {
		return &persistence.ExecutionError{Op: "SaveCheckpoint", ExecutionID: executionID, Err: err}
	}

	return nil
}

func (r *CheckpointRepository) Latest(ctx context.Context, executionID string) (*models.Checkpoint, error) {
	var payload []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM agent_checkpoints WHERE execution_id = $1`, executionID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCheckpointNotFound
		}

		return nil, &persistence.ExecutionError{Op: "LatestCheckpoint", ExecutionID: executionID, Err: err}
	}

	var checkpoint models.Checkpoint
	if err := json.Unmarshal(payload, &checkpoint); err != nil {
		return nil, &persistence.ExecutionError{Op: "LatestCheckpoint", ExecutionID: executionID, Err: err}
	}

	return &checkpoint, nil
}
