// Package agent implements the ReAct orchestrator: an LLM+tool reasoning loop
// with incremental persistence and periodic checkpoint-and-restart.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/corvand/continuo/pkg/eventbus"
	"github.com/corvand/continuo/pkg/events"
	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
	"github.com/corvand/continuo/pkg/protocol"
	"github.com/corvand/continuo/pkg/signals"
	"github.com/corvand/continuo/pkg/substrate"
)

const (
	// ContinueAsNewThreshold is how many iterations a logical run accumulates
	// before the loop checkpoints and restarts, bounding journal growth.
	ContinueAsNewThreshold = 50

	// IncrementalPersistInterval bounds the crash-loss window for
	// conversation messages, independent of the restart threshold.
	IncrementalPersistInterval = 10

	// UserInputTimeout is how long a run waits for a human reply.
	UserInputTimeout = 5 * time.Minute

	// UserMessageSignal is the inbound channel asynchronous user messages
	// arrive on.
	UserMessageSignal = "user-message"
)

type Orchestrator struct {
	configs     protocol.AgentConfigStore
	llm         protocol.LLMClient
	tools       protocol.ToolExecutor
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	logger      *slog.Logger
}

func NewOrchestrator(
	logger *slog.Logger,
	configs protocol.AgentConfigStore,
	llm protocol.LLMClient,
	tools protocol.ToolExecutor,
	store persistence.Persistence,
	eventBus eventbus.EventPublisher,
) *Orchestrator {
	return &Orchestrator{
		configs:     configs,
		llm:         llm,
		tools:       tools,
		persistence: store,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// RunInput identifies one agent run.
type RunInput struct {
	AgentID        string
	UserID         string
	InitialMessage string
}

// RunResult is the caller-visible outcome of an agent run.
type RunResult struct {
	Success      bool                         `json:"success"`
	FinalMessage string                       `json:"final_message,omitempty"`
	Error        string                       `json:"error,omitempty"`
	Iterations   int                          `json:"iterations"`
	Messages     []models.ConversationMessage `json:"messages,omitempty"`
}

type loopState struct {
	config    *models.AgentConfig
	messages  []models.ConversationMessage
	savedIDs  map[string]bool
	metadata  map[string]any
	iteration int
}

// Run drives the reasoning loop under the given session until completion,
// terminal failure, or a checkpoint-and-restart boundary. In the latter case
// the returned error is the substrate's continuation sentinel and the host
// restarts the loop with the carried state, invisibly to observers.
func (o *Orchestrator) Run(ctx context.Context, sess substrate.Session, input RunInput) (*RunResult, error) {
	executionID := sess.ExecutionID()
	logger := o.logger.With("execution_id", executionID, "agent_id", input.AgentID)

	var carried models.Checkpoint

	resumed, err := sess.ContinuationState(&carried)
	if err != nil {
		return nil, err
	}

	config, err := o.loadConfig(ctx, sess, input)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent config: %w", err)
	}

	state := &loopState{
		config:   config,
		savedIDs: make(map[string]bool),
		metadata: make(map[string]any),
	}

	if resumed {
		state.messages = carried.Messages
		state.iteration = carried.Iteration

		if carried.Metadata != nil {
			state.metadata = carried.Metadata
		}

		for _, id := range carried.SavedMessageIDs {
			state.savedIDs[id] = true
		}

		logger.InfoContext(ctx, "Resumed agent run from checkpoint",
			"iteration", state.iteration, "messages", len(state.messages))
	} else {
		state.messages = []models.ConversationMessage{
			models.NewConversationMessage(models.RoleSystem, config.SystemPrompt),
		}
		if input.InitialMessage != "" {
			state.messages = append(state.messages,
				models.NewConversationMessage(models.RoleUser, input.InitialMessage))
		}

		o.transitionStatus(ctx, sess, executionID, models.ExecutionStatusRunning, "")
		o.emit(ctx, executionID, events.ExecutionStarted{
			BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, executionID),
			AgentID:   input.AgentID,
		})

		logger.InfoContext(ctx, "Starting agent run", "max_iterations", config.MaxIterations)
	}

	gate := signals.NewWaitGate(sess, UserMessageSignal)

	// The restart gate must not refire at the iteration it resumed on.
	baseIteration := state.iteration

	for state.iteration < config.MaxIterations {
		sess.RecordHeartbeat(ctx, map[string]any{"iteration": state.iteration})

		if state.iteration > baseIteration && state.iteration%ContinueAsNewThreshold == 0 {
			return nil, o.checkpointAndRestart(ctx, sess, state)
		}

		o.emit(ctx, executionID, events.AgentThinking{
			BaseEvent: events.NewBaseEvent(events.AgentThinkingEvent, executionID),
			AgentID:   input.AgentID,
			Iteration: state.iteration,
		})

		reply, err := o.callModel(ctx, sess, state)
		if err != nil {
			logger.WarnContext(ctx, "Model call failed, aborting run", "error", err)

			return o.failRun(ctx, sess, state, input, err.Error()), nil
		}

		assistant := models.NewConversationMessage(models.RoleAssistant, reply.Content)
		assistant.ToolCalls = reply.ToolCalls
		state.messages = append(state.messages, assistant)
		o.emitMessage(ctx, executionID, input.AgentID, assistant)

		if len(reply.ToolCalls) == 0 {
			if reply.RequiresUserInput {
				done, result := o.awaitUserInput(ctx, sess, gate, state, input)
				if done {
					return result, nil
				}

				state.iteration++

				continue
			}

			// Terminal completion.
			o.persistUnsaved(ctx, sess, state)
			o.saveCheckpoint(ctx, sess, state)
			o.transitionStatus(ctx, sess, executionID, models.ExecutionStatusCompleted, "")
			o.emit(ctx, executionID, events.ExecutionCompleted{
				BaseEvent:    events.NewBaseEvent(events.ExecutionCompletedEvent, executionID),
				FinalMessage: reply.Content,
				Iterations:   state.iteration + 1,
			})

			logger.InfoContext(ctx, "Agent run completed", "iterations", state.iteration+1)

			return &RunResult{
				Success:      true,
				FinalMessage: reply.Content,
				Iterations:   state.iteration + 1,
				Messages:     state.messages,
			}, nil
		}

		o.executeToolCalls(ctx, sess, state, input, reply.ToolCalls)

		if state.iteration > 0 && state.iteration%IncrementalPersistInterval == 0 {
			o.persistUnsaved(ctx, sess, state)
		}

		state.iteration++
	}

	logger.WarnContext(ctx, "Agent run exhausted max iterations", "iterations", state.iteration)

	return o.failRun(ctx, sess, state, input, "max iterations reached"), nil
}

// checkpointAndRestart persists every unsaved message, bounds the carried
// conversation, and hands the substrate a continuation carrying the
// transferable state. The externally visible execution id is unchanged.
func (o *Orchestrator) checkpointAndRestart(ctx context.Context, sess substrate.Session, state *loopState) error {
	o.persistUnsaved(ctx, sess, state)

	summarized := summarizeConversation(state.messages, state.config.Memory.MaxMessages)

	checkpoint := models.Checkpoint{
		Messages:        summarized,
		SavedMessageIDs: survivingIDs(state.savedIDs, summarized),
		Metadata:        state.metadata,
		Iteration:       state.iteration,
	}

	o.saveCheckpointValue(ctx, sess, &checkpoint)

	return sess.ContinueAsNew(&checkpoint)
}

func (o *Orchestrator) callModel(
	ctx context.Context,
	sess substrate.Session,
	state *loopState,
) (*protocol.CallResponse, error) {
	request := protocol.CallRequest{
		Model:        state.config.Model,
		Provider:     state.config.Provider,
		ConnectionID: state.config.ConnectionID,
		Messages:     state.messages,
		Tools:        state.config.Tools,
		Temperature:  state.config.Temperature,
		MaxTokens:    state.config.MaxTokens,
	}

	raw, err := sess.ExecuteActivity(ctx, "llm:call", substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		response, callErr := o.llm.Call(ctx, request)
		if callErr != nil {
			return nil, callErr
		}

		return structToMap(response)
	})
	if err != nil {
		return nil, err
	}

	var response protocol.CallResponse
	if err := mapToStruct(raw, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// executeToolCalls runs each requested tool strictly in request order. A tool
// failure becomes conversational context, never a run failure.
func (o *Orchestrator) executeToolCalls(
	ctx context.Context,
	sess substrate.Session,
	state *loopState,
	input RunInput,
	calls []models.ToolCall,
) {
	executionID := sess.ExecutionID()

	for _, call := range calls {
		o.emit(ctx, executionID, events.ToolCallStarted{
			BaseEvent:  events.NewBaseEvent(events.ToolCallStartedEvent, executionID),
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Arguments:  call.Arguments,
		})

		started := time.Now()

		result, err := sess.ExecuteActivity(ctx, "tool:"+call.ID, substrate.ActivityOptions{
			RetryPolicy: substrate.DefaultRetryPolicy(),
		}, func(ctx context.Context) (map[string]any, error) {
			return o.tools.Execute(ctx, executionID, call, state.config.Tools, input.UserID, input.AgentID)
		})

		var content string

		if err != nil {
			content = encodeJSON(map[string]any{"error": err.Error()})

			o.emit(ctx, executionID, events.ToolCallFailed{
				BaseEvent:  events.NewBaseEvent(events.ToolCallFailedEvent, executionID),
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Error:      err.Error(),
			})
		} else {
			content = encodeJSON(result)

			o.emit(ctx, executionID, events.ToolCallCompleted{
				BaseEvent:  events.NewBaseEvent(events.ToolCallCompletedEvent, executionID),
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Result:     result,
				DurationMs: time.Since(started).Milliseconds(),
			})
		}

		toolMessage := models.NewConversationMessage(models.RoleTool, content)
		toolMessage.ToolName = call.Name
		toolMessage.ToolCallID = call.ID
		state.messages = append(state.messages, toolMessage)
		o.emitMessage(ctx, executionID, input.AgentID, toolMessage)
	}
}

// awaitUserInput suspends on the user-message gate. It reports done=true with
// a terminal result on timeout, or done=false after appending the received
// payload as a user message.
func (o *Orchestrator) awaitUserInput(
	ctx context.Context,
	sess substrate.Session,
	gate *signals.WaitGate,
	state *loopState,
	input RunInput,
) (bool, *RunResult) {
	executionID := sess.ExecutionID()

	outcome, err := gate.Wait(ctx, UserInputTimeout)
	if err != nil {
		return true, o.failRun(ctx, sess, state, input, err.Error())
	}

	if outcome.TimedOut {
		return true, o.failRun(ctx, sess, state, input, "timeout waiting for user input")
	}

	content, ok := outcome.Value.(string)
	if !ok {
		content = encodeJSON(outcome.Value)
	}

	userMessage := models.NewConversationMessage(models.RoleUser, content)
	state.messages = append(state.messages, userMessage)
	o.emitMessage(ctx, executionID, input.AgentID, userMessage)

	return false, nil
}

func (o *Orchestrator) failRun(
	ctx context.Context,
	sess substrate.Session,
	state *loopState,
	input RunInput,
	message string,
) *RunResult {
	executionID := sess.ExecutionID()

	o.persistUnsaved(ctx, sess, state)
	o.transitionStatus(ctx, sess, executionID, models.ExecutionStatusFailed, message)
	o.emit(ctx, executionID, events.ExecutionFailed{
		BaseEvent:  events.NewBaseEvent(events.ExecutionFailedEvent, executionID),
		Error:      message,
		Iterations: state.iteration,
	})

	return &RunResult{
		Success:    false,
		Error:      message,
		Iterations: state.iteration,
		Messages:   state.messages,
	}
}

// persistUnsaved saves every not-yet-persisted message. The conversation
// repository is idempotent by message id, so replays and overlapping saves
// are harmless.
func (o *Orchestrator) persistUnsaved(ctx context.Context, sess substrate.Session, state *loopState) {
	if o.persistence == nil {
		return
	}

	unsaved := make([]models.ConversationMessage, 0, len(state.messages))

	for _, message := range state.messages {
		if !state.savedIDs[message.ID] {
			unsaved = append(unsaved, message)
		}
	}

	if len(unsaved) == 0 {
		return
	}

	executionID := sess.ExecutionID()

	_, err := sess.ExecuteActivity(ctx, "conversation:save", substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, o.persistence.ConversationRepository().SaveMessages(ctx, executionID, unsaved)
	})
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to persist conversation messages",
			"execution_id", executionID, "error", err)

		return
	}

	for _, message := range unsaved {
		state.savedIDs[message.ID] = true
	}
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, sess substrate.Session, state *loopState) {
	checkpoint := models.Checkpoint{
		Messages:        state.messages,
		SavedMessageIDs: survivingIDs(state.savedIDs, state.messages),
		Metadata:        state.metadata,
		Iteration:       state.iteration,
	}

	o.saveCheckpointValue(ctx, sess, &checkpoint)
}

func (o *Orchestrator) saveCheckpointValue(ctx context.Context, sess substrate.Session, checkpoint *models.Checkpoint) {
	if o.persistence == nil {
		return
	}

	executionID := sess.ExecutionID()

	_, err := sess.ExecuteActivity(ctx, "checkpoint:save", substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, o.persistence.CheckpointRepository().Save(ctx, executionID, checkpoint)
	})
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to persist checkpoint",
			"execution_id", executionID, "error", err)
	}
}

func (o *Orchestrator) loadConfig(
	ctx context.Context,
	sess substrate.Session,
	input RunInput,
) (*models.AgentConfig, error) {
	raw, err := sess.ExecuteActivity(ctx, "config:get", substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		config, getErr := o.configs.Get(ctx, input.AgentID, input.UserID)
		if getErr != nil {
			return nil, getErr
		}

		if validateErr := config.Validate(); validateErr != nil {
			return nil, validateErr
		}

		return structToMap(config)
	})
	if err != nil {
		return nil, err
	}

	var config models.AgentConfig
	if err := mapToStruct(raw, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (o *Orchestrator) transitionStatus(
	ctx context.Context,
	sess substrate.Session,
	executionID string,
	status models.ExecutionStatus,
	errorMessage string,
) {
	if o.persistence == nil {
		return
	}

	_, err := sess.ExecuteActivity(ctx, "execution:status:"+string(status), substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, o.persistence.ExecutionRepository().UpdateStatus(ctx, executionID, status, errorMessage)
	})
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to update execution status",
			"execution_id", executionID, "status", status, "error", err)
	}
}

func (o *Orchestrator) emitMessage(
	ctx context.Context,
	executionID, agentID string,
	message models.ConversationMessage,
) {
	o.emit(ctx, executionID, events.AgentMessage{
		BaseEvent: events.NewBaseEvent(events.AgentMessageEvent, executionID),
		AgentID:   agentID,
		Message:   message,
	})
}

// emit publishes telemetry with a single attempt; failures are swallowed.
func (o *Orchestrator) emit(ctx context.Context, key string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, key, event); err != nil {
		o.logger.DebugContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func structToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func mapToStruct(m map[string]any, v any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func encodeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}

	return string(data)
}
