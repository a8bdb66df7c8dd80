package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/protocol"
)

// MockLLMClient is a mock implementation of protocol.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Call(ctx context.Context, req protocol.CallRequest) (*protocol.CallResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.CallResponse), args.Error(1)
}

// MockToolExecutor is a mock implementation of protocol.ToolExecutor interface.
type MockToolExecutor struct {
	mock.Mock
}

func (m *MockToolExecutor) Execute(
	ctx context.Context,
	executionID string,
	call models.ToolCall,
	available []models.ToolDefinition,
	userID string,
	agentID string,
) (map[string]any, error) {
	args := m.Called(ctx, executionID, call, available, userID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

// MockAgentConfigStore is a mock implementation of protocol.AgentConfigStore interface.
type MockAgentConfigStore struct {
	mock.Mock
}

func (m *MockAgentConfigStore) Get(ctx context.Context, agentID, userID string) (*models.AgentConfig, error) {
	args := m.Called(ctx, agentID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.AgentConfig), args.Error(1)
}
