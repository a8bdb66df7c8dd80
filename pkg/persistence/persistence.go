// Package persistence provides the data storage abstraction for execution
// records, conversations, and agent checkpoints.
package persistence

import (
	"context"

	"github.com/corvand/continuo/pkg/models"
)

// ExecutionRepository owns execution record lifecycle. Records are created by
// the caller; orchestrators only transition status and outputs.
type ExecutionRepository interface {
	Create(ctx context.Context, record *models.ExecutionRecord) error
	GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.ExecutionStatus, errorMessage string) error
	SetOutputs(ctx context.Context, id string, outputs map[string]any) error
}

// ConversationRepository persists agent conversation messages incrementally.
// SaveMessages is idempotent by message id: re-saving an already persisted
// message is a no-op.
type ConversationRepository interface {
	SaveMessages(ctx context.Context, executionID string, messages []models.ConversationMessage) error
	ListByExecution(ctx context.Context, executionID string) ([]models.ConversationMessage, error)
}

// CheckpointRepository stores the latest agent checkpoint per execution.
type CheckpointRepository interface {
	Save(ctx context.Context, executionID string, checkpoint *models.Checkpoint) error
	Latest(ctx context.Context, executionID string) (*models.Checkpoint, error)
}

type Persistence interface {
	ExecutionRepository() ExecutionRepository
	ConversationRepository() ConversationRepository
	CheckpointRepository() CheckpointRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
