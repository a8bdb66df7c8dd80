// Package events defines event types and structures for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/corvand/continuo/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every telemetry event continuo emits.
const Topic = "continuo.events"

// RequestTopic carries inbound execution requests consumed by workers.
const RequestTopic = "continuo.execution.requests"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionProgressEvent  EventType = "execution.progress"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Workflow node events.
	NodeStartedEvent   EventType = "node.started"
	NodeCompletedEvent EventType = "node.completed"
	NodeFailedEvent    EventType = "node.failed"

	// Agent loop events.
	AgentThinkingEvent EventType = "agent.thinking"
	AgentMessageEvent  EventType = "agent.message"

	// Tool call events.
	ToolCallStartedEvent   EventType = "tool_call.started"
	ToolCallCompletedEvent EventType = "tool_call.completed"
	ToolCallFailedEvent    EventType = "tool_call.failed"

	// Inbound request events.
	WorkflowExecutionRequestedEvent EventType = "workflow.execution.requested"
	AgentExecutionRequestedEvent    EventType = "agent.execution.requested"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	WorkerID    string         `json:"worker_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	WorkflowID string         `json:"workflow_id,omitempty"`
	AgentID    string         `json:"agent_id,omitempty"`
	Inputs     map[string]any `json:"inputs,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionProgress struct {
	BaseEvent

	NodesCompleted int     `json:"nodes_completed"`
	NodesTotal     int     `json:"nodes_total"`
	Percentage     float64 `json:"percentage"`
}

func (e ExecutionProgress) GetType() EventType {
	return ExecutionProgressEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Outputs      map[string]any `json:"outputs,omitempty"`
	FinalMessage string         `json:"final_message,omitempty"`
	Iterations   int            `json:"iterations,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Error          string         `json:"error"`
	Iterations     int            `json:"iterations,omitempty"`
	PartialResults map[string]any `json:"partial_results,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type NodeStarted struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
}

func (e NodeStarted) GetType() EventType {
	return NodeStartedEvent
}

type NodeCompleted struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	NodeType   string         `json:"node_type"`
	OutputData map[string]any `json:"output_data,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (e NodeCompleted) GetType() EventType {
	return NodeCompletedEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
	Error    string `json:"error"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

type AgentThinking struct {
	BaseEvent

	AgentID   string `json:"agent_id"`
	Iteration int    `json:"iteration"`
}

func (e AgentThinking) GetType() EventType {
	return AgentThinkingEvent
}

type AgentMessage struct {
	BaseEvent

	AgentID string                     `json:"agent_id"`
	Message models.ConversationMessage `json:"message"`
}

func (e AgentMessage) GetType() EventType {
	return AgentMessageEvent
}

type ToolCallStarted struct {
	BaseEvent

	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty"`
}

func (e ToolCallStarted) GetType() EventType {
	return ToolCallStartedEvent
}

type ToolCallCompleted struct {
	BaseEvent

	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Result     map[string]any `json:"result,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (e ToolCallCompleted) GetType() EventType {
	return ToolCallCompletedEvent
}

type ToolCallFailed struct {
	BaseEvent

	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Error      string `json:"error"`
}

func (e ToolCallFailed) GetType() EventType {
	return ToolCallFailedEvent
}

// WorkflowExecutionRequested asks a worker to run a workflow definition.
type WorkflowExecutionRequested struct {
	BaseEvent

	WorkflowID string                     `json:"workflow_id"`
	Definition *models.WorkflowDefinition `json:"definition"`
	Inputs     map[string]any             `json:"inputs,omitempty"`
}

func (e WorkflowExecutionRequested) GetType() EventType {
	return WorkflowExecutionRequestedEvent
}

// AgentExecutionRequested asks a worker to start an agent run.
type AgentExecutionRequested struct {
	BaseEvent

	AgentID        string `json:"agent_id"`
	UserID         string `json:"user_id"`
	InitialMessage string `json:"initial_message,omitempty"`
}

func (e AgentExecutionRequested) GetType() EventType {
	return AgentExecutionRequestedEvent
}

func NewBaseEvent(eventType EventType, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		Metadata:    make(map[string]any),
	}
}
