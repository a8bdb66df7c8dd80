package protocol

import (
	"context"

	"github.com/corvand/continuo/pkg/models"
)

// ToolExecutor invokes one assistant-requested tool call. A per-call failure
// is captured by the orchestrator as conversational context, never propagated.
type ToolExecutor interface {
	Execute(
		ctx context.Context,
		executionID string,
		call models.ToolCall,
		available []models.ToolDefinition,
		userID string,
		agentID string,
	) (map[string]any, error)
}
