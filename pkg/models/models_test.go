package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:   "wf-1",
		Name: "test",
		Nodes: map[string]*Node{
			"a": {ID: "a", Type: "input", Config: map[string]any{"inputName": "x"}},
			"b": {ID: "b", Type: "output", Config: map[string]any{"outputName": "y", "value": "${x}"}},
		},
		Edges: []*Edge{{ID: "e1", Source: "a", Target: "b"}},
	}
}

func TestWorkflowDefinition_Validate(t *testing.T) {
	require.NoError(t, validDefinition().Validate())
}

func TestWorkflowDefinition_Validate_NodeIDMismatch(t *testing.T) {
	def := validDefinition()
	def.Nodes["a"].ID = "z"

	err := def.Validate()
	require.ErrorIs(t, err, ErrNodeIDMismatch)
}

func TestWorkflowDefinition_Validate_DanglingEdge(t *testing.T) {
	def := validDefinition()
	def.Edges = append(def.Edges, &Edge{ID: "e2", Source: "b", Target: "ghost"})

	err := def.Validate()
	require.ErrorIs(t, err, ErrDanglingEdge)
}

func TestWorkflowDefinition_Validate_MissingNodeType(t *testing.T) {
	def := validDefinition()
	def.Nodes["a"].Type = ""

	require.Error(t, def.Validate())
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExecutionStatusPending.IsTerminal())
	assert.False(t, ExecutionStatusRunning.IsTerminal())
	assert.True(t, ExecutionStatusCompleted.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
	assert.True(t, ExecutionStatusCancelled.IsTerminal())
}

func TestExecutionContext_MergeAndSnapshot(t *testing.T) {
	ctx := NewExecutionContext("exec-1", "wf-1")
	ctx.Merge(map[string]any{"a": 1, "b": "old"})
	ctx.Merge(map[string]any{"b": "new"})

	assert.Equal(t, 1, ctx.Variables["a"])
	assert.Equal(t, "new", ctx.Variables["b"])

	snapshot := ctx.Snapshot()
	snapshot["a"] = 99

	assert.Equal(t, 1, ctx.Variables["a"])
}

func TestAgentConfig_Validate(t *testing.T) {
	config := &AgentConfig{
		ID:            "agent-1",
		SystemPrompt:  "prompt",
		Model:         "gpt-4o",
		Provider:      "openai",
		MaxIterations: 10,
		Memory:        MemoryConfig{MaxMessages: 4},
	}
	require.NoError(t, config.Validate())

	config.Memory.MaxMessages = 1
	require.Error(t, config.Validate())

	config.Memory.MaxMessages = 4
	config.Model = ""
	require.Error(t, config.Validate())
}

func TestNewConversationMessage(t *testing.T) {
	message := NewConversationMessage(RoleUser, "hi")

	assert.NotEmpty(t, message.ID)
	assert.Equal(t, RoleUser, message.Role)
	assert.Equal(t, "hi", message.Content)
	assert.False(t, message.Timestamp.IsZero())
}
