package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, record *models.ExecutionRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionRecord), args.Error(1)
}

func (m *MockExecutionRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status models.ExecutionStatus,
	errorMessage string,
) error {
	args := m.Called(ctx, id, status, errorMessage)

	return args.Error(0)
}

func (m *MockExecutionRepository) SetOutputs(ctx context.Context, id string, outputs map[string]any) error {
	args := m.Called(ctx, id, outputs)

	return args.Error(0)
}

// MockConversationRepository is a mock implementation of persistence.ConversationRepository interface.
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) SaveMessages(
	ctx context.Context,
	executionID string,
	messages []models.ConversationMessage,
) error {
	args := m.Called(ctx, executionID, messages)

	return args.Error(0)
}

func (m *MockConversationRepository) ListByExecution(
	ctx context.Context,
	executionID string,
) ([]models.ConversationMessage, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.ConversationMessage), args.Error(1)
}

// MockCheckpointRepository is a mock implementation of persistence.CheckpointRepository interface.
type MockCheckpointRepository struct {
	mock.Mock
}

func (m *MockCheckpointRepository) Save(ctx context.Context, executionID string, checkpoint *models.Checkpoint) error {
	args := m.Called(ctx, executionID, checkpoint)

	return args.Error(0)
}

func (m *MockCheckpointRepository) Latest(ctx context.Context, executionID string) (*models.Checkpoint, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Checkpoint), args.Error(1)
}

// MockPersistence bundles the repository mocks behind the persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Executions    *MockExecutionRepository
	Conversations *MockConversationRepository
	Checkpoints   *MockCheckpointRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Executions:    new(MockExecutionRepository),
		Conversations: new(MockConversationRepository),
		Checkpoints:   new(MockCheckpointRepository),
	}
}

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.Executions
}

func (m *MockPersistence) ConversationRepository() persistence.ConversationRepository {
	return m.Conversations
}

func (m *MockPersistence) CheckpointRepository() persistence.CheckpointRepository {
	return m.Checkpoints
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
