package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// ExecutionRepository stores one JSON file per execution record.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: filepath.Join(root, "executions")}
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.root, id+".json")
}

func (r *ExecutionRepository) load(id string) (*models.ExecutionRecord, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, &persistence.ExecutionError{Op: "load", ExecutionID: id, Err: err}
	}

	var record models.ExecutionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &persistence.ExecutionError{Op: "decode", ExecutionID: id, Err: err}
	}

	return &record, nil
}

func (r *ExecutionRepository) save(record *models.ExecutionRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &persistence.ExecutionError{Op: "encode", ExecutionID: record.ID, Err: err}
	}

	return writeJSON(r.path(record.ID), data)
}

func (r *ExecutionRepository) Create(_ context.Context, record *models.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(record.ID)); err == nil {
		return fmt.Errorf("%w: %s", persistence.ErrExecutionAlreadyExists, record.ID)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if record.Status == "" {
		record.Status = models.ExecutionStatusPending
	}

	return r.save(record)
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id)
}

func (r *ExecutionRepository) UpdateStatus(
	_ context.Context,
	id string,
	status models.ExecutionStatus,
	errorMessage string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.load(id)
	if err != nil {
		return err
	}

	if record.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", persistence.ErrTerminalStatus, record.Status)
	}

	now := time.Now().UTC()
	record.Status = status
	record.Error = errorMessage

	switch {
	case status == models.ExecutionStatusRunning && record.StartedAt == nil:
		record.StartedAt = &now
	case status.IsTerminal():
		record.CompletedAt = &now
	}

	return r.save(record)
}

func (r *ExecutionRepository) SetOutputs(_ context.Context, id string, outputs map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.load(id)
	if err != nil {
		return err
	}

	record.Outputs = outputs

	return r.save(record)
}
