// Package workflow implements the DAG orchestrator: it executes a node/edge
// graph in dependency order, merging per-node outputs into a shared context
// and propagating failures to dependents.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corvand/continuo/pkg/eventbus"
	"github.com/corvand/continuo/pkg/events"
	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
	"github.com/corvand/continuo/pkg/registry"
	"github.com/corvand/continuo/pkg/substrate"
)

type Executor struct {
	registry    *registry.Registry
	eventBus    eventbus.EventPublisher
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewExecutor(
	logger *slog.Logger,
	reg *registry.Registry,
	eventBus eventbus.EventPublisher,
	store persistence.Persistence,
) *Executor {
	return &Executor{
		registry:    reg,
		eventBus:    eventBus,
		persistence: store,
		logger:      logger,
	}
}

// nodeFailure records one failing node in visit order, for the aggregate
// run error.
type nodeFailure struct {
	nodeID string
	reason string
}

// visitFrame is one entry of the explicit worklist that replaces the
// recursive depth-first walk, so deep graphs cannot blow the stack.
// A node is marked visited when its frame is first processed, never at push
// time: frames pushed for an already visited node are discarded on pop.
type visitFrame struct {
	nodeID   string
	depIndex int
	depsDone bool
	touched  bool
}

// Execute runs the workflow definition to completion under the given session.
// Node bodies run strictly sequentially and go through the substrate's
// activity API, so a resumed run replays completed nodes instead of
// re-executing them.
func (e *Executor) Execute(
	ctx context.Context,
	sess substrate.Session,
	def *models.WorkflowDefinition,
	inputs map[string]any,
) (*models.ExecutionResult, error) {
	executionID := sess.ExecutionID()
	logger := e.logger.With("execution_id", executionID, "workflow_id", def.ID)

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow definition: %w", err)
	}

	started := time.Now()

	logger.InfoContext(ctx, "Starting workflow execution")

	e.transitionStatus(ctx, sess, executionID, models.ExecutionStatusRunning, "")

	startedEvent := events.ExecutionStarted{
		BaseEvent:  events.NewBaseEvent(events.ExecutionStartedEvent, executionID),
		WorkflowID: def.ID,
		Inputs:     inputs,
	}
	e.emit(ctx, executionID, startedEvent)

	run := &runState{
		executionID: executionID,
		graph:       buildGraph(def),
		context:     models.NewExecutionContext(executionID, def.ID),
		inputs:      inputs,
		visited:     make(map[string]bool),
		failed:      make(map[string]string),
		logger:      logger,
	}

	for _, start := range run.graph.startNodes(def.EntryPoint) {
		if err := e.visit(ctx, sess, run, start); err != nil {
			return nil, err
		}
	}

	result := run.result()
	duration := time.Since(started)

	e.persistOutcome(ctx, sess, executionID, result)

	if result.Success {
		logger.InfoContext(ctx, "Workflow execution completed",
			"nodes_executed", run.completed, "duration", duration)

		e.emit(ctx, executionID, events.ExecutionCompleted{
			BaseEvent:  events.NewBaseEvent(events.ExecutionCompletedEvent, executionID),
			Outputs:    result.Outputs,
			DurationMs: duration.Milliseconds(),
		})
	} else {
		logger.WarnContext(ctx, "Workflow execution failed", "error", result.Error)

		e.emit(ctx, executionID, events.ExecutionFailed{
			BaseEvent:      events.NewBaseEvent(events.ExecutionFailedEvent, executionID),
			Error:          result.Error,
			PartialResults: result.Outputs,
			DurationMs:     duration.Milliseconds(),
		})
	}

	return result, nil
}

type runState struct {
	executionID string
	graph       *graph
	context     *models.ExecutionContext
	inputs      map[string]any
	visited     map[string]bool
	failed      map[string]string
	failures    []nodeFailure
	completed   int
	logger      *slog.Logger
}

func (r *runState) fail(nodeID, reason string) {
	r.failed[nodeID] = reason
	r.failures = append(r.failures, nodeFailure{nodeID: nodeID, reason: reason})
}

func (r *runState) result() *models.ExecutionResult {
	if len(r.failures) == 0 {
		return &models.ExecutionResult{Success: true, Outputs: r.context.Variables}
	}

	descriptions := make([]string, 0, len(r.failures))
	for _, failure := range r.failures {
		descriptions = append(descriptions, fmt.Sprintf("node %s: %s", failure.nodeID, failure.reason))
	}

	return &models.ExecutionResult{
		Success: false,
		Outputs: r.context.Variables,
		Error:   strings.Join(descriptions, "; "),
	}
}

// visit walks the graph depth-first from nodeID over an explicit worklist.
// A frame marks its node visited before the dependency pass, so a true cycle
// degrades to a silent no-op revisit instead of livelock. A dependency that
// is still unvisited suspends the frame until that dependency's own frame has
// resolved, which keeps a join node from running before every predecessor has
// finished.
func (e *Executor) visit(ctx context.Context, sess substrate.Session, run *runState, nodeID string) error {
	stack := []*visitFrame{{nodeID: nodeID}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]

		if !frame.touched {
			if run.visited[frame.nodeID] {
				stack = stack[:len(stack)-1]

				continue
			}

			frame.touched = true
			run.visited[frame.nodeID] = true
		}

		if !frame.depsDone {
			deps := run.graph.incoming[frame.nodeID]

			if frame.depIndex < len(deps) {
				dep := deps[frame.depIndex]
				frame.depIndex++

				if !run.visited[dep] {
					stack = append(stack, &visitFrame{nodeID: dep})
				}

				continue
			}

			frame.depsDone = true
		}

		stack = stack[:len(stack)-1]

		if reason, ok := e.dependencyFailure(run, frame.nodeID); ok {
			run.fail(frame.nodeID, reason)
			e.emitNodeFailed(ctx, run, frame.nodeID, reason)
		} else if err := e.executeNode(ctx, sess, run, frame.nodeID); err != nil {
			return err
		}

		// Dependents are walked even when this node failed, so the failure
		// fence marks every transitive dependent without executing it.
		targets := run.graph.outgoing[frame.nodeID]
		for i := len(targets) - 1; i >= 0; i-- {
			if !run.visited[targets[i]] {
				stack = append(stack, &visitFrame{nodeID: targets[i]})
			}
		}
	}

	return nil
}

func (e *Executor) dependencyFailure(run *runState, nodeID string) (string, bool) {
	for _, dep := range run.graph.incoming[nodeID] {
		if _, ok := run.failed[dep]; ok {
			return "Dependency failed", true
		}
	}

	return "", false
}

// executeNode runs one node body. Input nodes copy a named run input; every
// other type dispatches to the node handler registry through the substrate.
func (e *Executor) executeNode(ctx context.Context, sess substrate.Session, run *runState, nodeID string) error {
	node := run.graph.nodes[nodeID]
	logger := run.logger.With("node_id", nodeID, "node_type", node.Type)

	e.emit(ctx, run.executionID, events.NodeStarted{
		BaseEvent: events.NewBaseEvent(events.NodeStartedEvent, run.executionID),
		NodeID:    nodeID,
		NodeType:  node.Type,
	})

	nodeStarted := time.Now()

	var (
		output map[string]any
		err    error
	)

	if node.Type == models.NodeTypeInput {
		output = e.copyInput(node, run.inputs)
	} else {
		output, err = sess.ExecuteActivity(ctx, "node:"+nodeID, substrate.ActivityOptions{
			RetryPolicy: substrate.DefaultRetryPolicy(),
		}, func(ctx context.Context) (map[string]any, error) {
			instance, createErr := e.registry.CreateNode(ctx, node.Type, nodeID, node.Config)
			if createErr != nil {
				return nil, createErr
			}

			return instance.Execute(ctx, run.context.Snapshot())
		})
	}

	if err != nil {
		logger.WarnContext(ctx, "Node execution failed", "error", err)
		run.fail(nodeID, err.Error())
		e.emitNodeFailed(ctx, run, nodeID, err.Error())

		return nil
	}

	run.context.Merge(output)
	run.completed++

	logger.DebugContext(ctx, "Node execution finished")

	e.emit(ctx, run.executionID, events.NodeCompleted{
		BaseEvent:  events.NewBaseEvent(events.NodeCompletedEvent, run.executionID),
		NodeID:     nodeID,
		NodeType:   node.Type,
		OutputData: output,
		DurationMs: time.Since(nodeStarted).Milliseconds(),
	})

	total := len(run.graph.nodes)
	e.emit(ctx, run.executionID, events.ExecutionProgress{
		BaseEvent:      events.NewBaseEvent(events.ExecutionProgressEvent, run.executionID),
		NodesCompleted: run.completed,
		NodesTotal:     total,
		Percentage:     100 * float64(run.completed) / float64(total),
	})

	return nil
}

func (e *Executor) copyInput(node *models.Node, inputs map[string]any) map[string]any {
	name, _ := node.Config["inputName"].(string)
	if name == "" {
		return map[string]any{}
	}

	value, ok := inputs[name]
	if !ok {
		return map[string]any{}
	}

	return map[string]any{name: value}
}

func (e *Executor) emitNodeFailed(ctx context.Context, run *runState, nodeID, reason string) {
	node := run.graph.nodes[nodeID]

	e.emit(ctx, run.executionID, events.NodeFailed{
		BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, run.executionID),
		NodeID:    nodeID,
		NodeType:  node.Type,
		Error:     reason,
	})
}

// emit publishes telemetry with a single attempt. Emission failures never
// affect control flow.
func (e *Executor) emit(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.DebugContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

// transitionStatus updates the execution record through the substrate so a
// replayed run does not repeat the write.
func (e *Executor) transitionStatus(
	ctx context.Context,
	sess substrate.Session,
	executionID string,
	status models.ExecutionStatus,
	errorMessage string,
) {
	if e.persistence == nil {
		return
	}

	_, err := sess.ExecuteActivity(ctx, "execution:status:"+string(status), substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, e.persistence.ExecutionRepository().UpdateStatus(ctx, executionID, status, errorMessage)
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to update execution status",
			"execution_id", executionID, "status", status, "error", err)
	}
}

func (e *Executor) persistOutcome(
	ctx context.Context,
	sess substrate.Session,
	executionID string,
	result *models.ExecutionResult,
) {
	if e.persistence == nil {
		return
	}

	_, err := sess.ExecuteActivity(ctx, "execution:outputs", substrate.ActivityOptions{
		RetryPolicy: substrate.DefaultRetryPolicy(),
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, e.persistence.ExecutionRepository().SetOutputs(ctx, executionID, result.Outputs)
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to persist execution outputs",
			"execution_id", executionID, "error", err)
	}

	if result.Success {
		e.transitionStatus(ctx, sess, executionID, models.ExecutionStatusCompleted, "")
	} else {
		e.transitionStatus(ctx, sess, executionID, models.ExecutionStatusFailed, result.Error)
	}
}
