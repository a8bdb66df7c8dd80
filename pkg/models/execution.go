package models

import "time"

// ExecutionStatus represents the lifecycle state of an execution record.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ExecutionRecord tracks one workflow or agent run. It is created by the
// caller; the orchestrator only transitions its status and outputs.
type ExecutionRecord struct {
	ID          string          `json:"id"          validate:"required"`
	WorkflowID  string          `json:"workflow_id"`
	AgentID     string          `json:"agent_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	Inputs      map[string]any  `json:"inputs,omitempty"`
	Outputs     map[string]any  `json:"outputs,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ExecutionContext is the key/value store threaded through one workflow run.
// It accumulates node outputs keyed by variable name and is discarded when the
// run ends; durability is the orchestration's job, not the context's.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Variables   map[string]any `json:"variables"`
}

func NewExecutionContext(executionID, workflowID string) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Variables:   make(map[string]any),
	}
}

// Merge writes every key from result into the context. Later writes for the
// same key overwrite earlier ones.
func (c *ExecutionContext) Merge(result map[string]any) {
	for key, value := range result {
		c.Variables[key] = value
	}
}

// Snapshot returns a shallow copy of the variables, safe to hand to a node
// body without exposing the live map.
func (c *ExecutionContext) Snapshot() map[string]any {
	snapshot := make(map[string]any, len(c.Variables))
	for key, value := range c.Variables {
		snapshot[key] = value
	}

	return snapshot
}

// ExecutionResult is the caller-visible outcome of a workflow run.
type ExecutionResult struct {
	Success bool           `json:"success"`
	Outputs map[string]any `json:"outputs"`
	Error   string         `json:"error,omitempty"`
}
