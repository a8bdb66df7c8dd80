package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is an assistant-requested tool invocation. Its result becomes a
// tool-role message linked back through ToolCallID.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ConversationMessage is one entry in an agent run's conversation. Exactly one
// system message exists per conversation and it is always index 0.
type ConversationMessage struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewConversationMessage builds a message with a fresh id and timestamp.
func NewConversationMessage(role Role, content string) ConversationMessage {
	return ConversationMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Checkpoint is the entire transferable state of an in-progress agent run
// across a checkpoint-and-restart boundary.
type Checkpoint struct {
	Messages        []ConversationMessage `json:"messages"`
	SavedMessageIDs []string              `json:"saved_message_ids"`
	Metadata        map[string]any        `json:"metadata,omitempty"`
	Iteration       int                   `json:"iteration"`
}
