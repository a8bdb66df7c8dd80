package protocol

import (
	"context"

	"github.com/corvand/continuo/pkg/models"
)

// CallRequest carries one reasoning call to the model provider.
type CallRequest struct {
	Model        string                       `json:"model"`
	Provider     string                       `json:"provider"`
	ConnectionID string                       `json:"connection_id,omitempty"`
	Messages     []models.ConversationMessage `json:"messages"`
	Tools        []models.ToolDefinition      `json:"tools,omitempty"`
	Temperature  float64                      `json:"temperature"`
	MaxTokens    int                          `json:"max_tokens"`
}

// CallResponse is the model's reply for one reasoning step.
type CallResponse struct {
	Content           string            `json:"content"`
	ToolCalls         []models.ToolCall `json:"tool_calls,omitempty"`
	RequiresUserInput bool              `json:"requires_user_input,omitempty"`
}

// LLMClient is the transport port to a model provider. A failed call aborts
// the whole agent run.
type LLMClient interface {
	Call(ctx context.Context, req CallRequest) (*CallResponse, error)
}
