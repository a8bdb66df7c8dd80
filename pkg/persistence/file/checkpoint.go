package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// CheckpointRepository stores the latest checkpoint per execution.
type CheckpointRepository struct {
	root string
	mu   sync.Mutex
}

func NewCheckpointRepository(root string) *CheckpointRepository {
	return &CheckpointRepository{root: filepath.Join(root, "checkpoints")}
}

func (r *CheckpointRepository) path(executionID string) string {
	return filepath.Join(r.root, executionID+".json")
}

func (r *CheckpointRepository) Save(_ context.Context, executionID string, checkpoint *models.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return &persistence.ExecutionError{Op: "encode checkpoint", ExecutionID: executionID, Err: err}
	}

	return writeJSON(r.path(executionID), data)
}

func (r *CheckpointRepository) Latest(_ context.Context, executionID string) (*models.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrCheckpointNotFound
		}

		return nil, &persistence.ExecutionError{Op: "load checkpoint", ExecutionID: executionID, Err: err}
	}

	var checkpoint models.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, &persistence.ExecutionError{Op: "decode checkpoint", ExecutionID: executionID, Err: err}
	}

	return &checkpoint, nil
}
