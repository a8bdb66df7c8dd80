package agent

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/corvand/continuo/pkg/mocks"
	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/protocol"
	"github.com/corvand/continuo/pkg/substrate/journal"
	"github.com/corvand/continuo/pkg/substrate/local"

	subst "github.com/corvand/continuo/pkg/substrate"
)

func testAgentConfig(maxIterations int) *models.AgentConfig {
	return &models.AgentConfig{
		ID:            "agent-1",
		Name:          "Helper",
		SystemPrompt:  "You are a helpful assistant.",
		Model:         "gpt-4o",
		Provider:      "openai",
		MaxIterations: maxIterations,
		Memory:        models.MemoryConfig{MaxMessages: 10},
	}
}

type agentFixture struct {
	configs     *mocks.MockAgentConfigStore
	llm         *mocks.MockLLMClient
	tools       *mocks.MockToolExecutor
	persistence *mocks.MockPersistence
	orch        *Orchestrator
	substrate   *local.Substrate
}

func newAgentFixture(maxIterations int) *agentFixture {
	f := &agentFixture{
		configs:     new(mocks.MockAgentConfigStore),
		llm:         new(mocks.MockLLMClient),
		tools:       new(mocks.MockToolExecutor),
		persistence: mocks.NewMockPersistence(),
		substrate:   local.NewSubstrate(slog.Default(), journal.NewMemoryStore()),
	}

	f.configs.On("Get", mock.Anything, "agent-1", "user-1").Return(testAgentConfig(maxIterations), nil)
	f.persistence.Executions.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.persistence.Conversations.On("SaveMessages", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.persistence.Checkpoints.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	f.orch = NewOrchestrator(slog.Default(), f.configs, f.llm, f.tools, f.persistence, nil)

	return f
}

func (f *agentFixture) run(t *testing.T, executionID string) (*RunResult, error) {
	t.Helper()

	var result *RunResult

	err := f.substrate.Run(context.Background(), executionID, func(ctx context.Context, sess subst.Session) error {
		r, runErr := f.orch.Run(ctx, sess, RunInput{
			AgentID:        "agent-1",
			UserID:         "user-1",
			InitialMessage: "hello",
		})
		if runErr != nil {
			return runErr
		}

		result = r

		return nil
	})

	return result, err
}

func toolCallResponse(callID string) *protocol.CallResponse {
	return &protocol.CallResponse{
		Content: "let me check",
		ToolCalls: []models.ToolCall{
			{ID: callID, Name: "search", Arguments: map[string]any{"q": "weather"}},
		},
	}
}

func TestOrchestrator_CompletesInOneIteration(t *testing.T) {
	f := newAgentFixture(10)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(&protocol.CallResponse{Content: "done"}, nil)

	result, err := f.run(t, "agent-exec-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "done", result.FinalMessage)
	assert.Equal(t, 1, result.Iterations)

	require.Len(t, result.Messages, 3)
	assert.Equal(t, models.RoleSystem, result.Messages[0].Role)
	assert.Equal(t, "You are a helpful assistant.", result.Messages[0].Content)
	assert.Equal(t, models.RoleUser, result.Messages[1].Role)
	assert.Equal(t, "hello", result.Messages[1].Content)
	assert.Equal(t, models.RoleAssistant, result.Messages[2].Role)

	f.tools.AssertNotCalled(t, "Execute")
}

func TestOrchestrator_ToolCallsRunInOrder(t *testing.T) {
	f := newAgentFixture(10)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(&protocol.CallResponse{
		Content: "checking",
		ToolCalls: []models.ToolCall{
			{ID: "call-1", Name: "first", Arguments: map[string]any{}},
			{ID: "call-2", Name: "second", Arguments: map[string]any{}},
		},
	}, nil).Once()
	f.llm.On("Call", mock.Anything, mock.Anything).Return(&protocol.CallResponse{Content: "done"}, nil).Once()

	var order []string

	f.tools.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			call := args.Get(2).(models.ToolCall) //nolint:forcetypeassert
			order = append(order, call.Name)
		}).
		Return(map[string]any{"ok": true}, nil)

	result, err := f.run(t, "agent-exec-2")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"first", "second"}, order)

	// Tool results come back as tool-role messages linked to their call.
	var toolMessages []models.ConversationMessage

	for _, message := range result.Messages {
		if message.Role == models.RoleTool {
			toolMessages = append(toolMessages, message)
		}
	}

	require.Len(t, toolMessages, 2)
	assert.Equal(t, "call-1", toolMessages[0].ToolCallID)
	assert.Equal(t, "call-2", toolMessages[1].ToolCallID)
	assert.Contains(t, toolMessages[0].Content, `"ok":true`)
}

func TestOrchestrator_ToolFailureBecomesContext(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the full tool retry policy")
	}

	f := newAgentFixture(10)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(toolCallResponse("call-1"), nil).Once()
	f.llm.On("Call", mock.Anything, mock.Anything).Return(&protocol.CallResponse{Content: "sorry"}, nil).Once()

	f.tools.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("tool blew up"))

	result, err := f.run(t, "agent-exec-3")
	require.NoError(t, err)

	// The run completes despite the tool failure.
	assert.True(t, result.Success)
	assert.Equal(t, "sorry", result.FinalMessage)

	var toolMessage *models.ConversationMessage

	for i := range result.Messages {
		if result.Messages[i].Role == models.RoleTool {
			toolMessage = &result.Messages[i]
		}
	}

	require.NotNil(t, toolMessage)
	assert.Contains(t, toolMessage.Content, "error")
	assert.Contains(t, toolMessage.Content, "tool blew up")
}

func TestOrchestrator_LLMFailureAbortsRun(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the full model retry policy")
	}

	f := newAgentFixture(10)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	result, err := f.run(t, "agent-exec-4")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "provider down")
}

func TestOrchestrator_MaxIterationsExhausted(t *testing.T) {
	f := newAgentFixture(2)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(toolCallResponse("call-n"), nil)
	f.tools.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]any{"ok": true}, nil)

	result, err := f.run(t, "agent-exec-5")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "max iterations reached", result.Error)
	assert.Equal(t, 2, result.Iterations)
}

func TestOrchestrator_CheckpointRestartKeepsSystemMessage(t *testing.T) {
	f := newAgentFixture(ContinueAsNewThreshold + 5)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(toolCallResponse("call-n"), nil)
	f.tools.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]any{"ok": true}, nil)

	result, err := f.run(t, "agent-exec-6")
	require.NoError(t, err)

	// The run crossed one checkpoint-and-restart boundary and then exhausted
	// its iteration limit.
	assert.False(t, result.Success)
	assert.Equal(t, "max iterations reached", result.Error)
	assert.Equal(t, ContinueAsNewThreshold+5, result.Iterations)

	// The carried conversation stayed bounded and kept the system message
	// at index 0.
	require.NotEmpty(t, result.Messages)
	assert.Equal(t, models.RoleSystem, result.Messages[0].Role)

	carriedPlusTail := 10 + 2*5 //nolint:mnd
	assert.LessOrEqual(t, len(result.Messages), carriedPlusTail)

	f.persistence.Checkpoints.AssertCalled(t, "Save", mock.Anything, "agent-exec-6", mock.Anything)
}

func TestOrchestrator_WaitsForUserInput(t *testing.T) {
	f := newAgentFixture(10)

	f.llm.On("Call", mock.Anything, mock.Anything).Return(&protocol.CallResponse{
		Content:           "what city?",
		RequiresUserInput: true,
	}, nil).Once()
	f.llm.On("Call", mock.Anything, mock.Anything).Return(&protocol.CallResponse{Content: "sunny in Lisbon"}, nil).Once()

	go func() {
		time.Sleep(30 * time.Millisecond)

		err := f.substrate.Signal(context.Background(), "agent-exec-7", UserMessageSignal, "Lisbon")
		assert.NoError(t, err)
	}()

	result, err := f.run(t, "agent-exec-7")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "sunny in Lisbon", result.FinalMessage)

	var sawReply bool

	for _, message := range result.Messages {
		if message.Role == models.RoleUser && message.Content == "Lisbon" {
			sawReply = true
		}
	}

	assert.True(t, sawReply)
}
