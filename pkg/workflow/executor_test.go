package workflow

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/corvand/continuo/pkg/eventbus"
	"github.com/corvand/continuo/pkg/events"
	"github.com/corvand/continuo/pkg/mocks"
	"github.com/corvand/continuo/pkg/models"
	nodelog "github.com/corvand/continuo/pkg/nodes/log"
	"github.com/corvand/continuo/pkg/nodes/output"
	"github.com/corvand/continuo/pkg/nodes/transform"
	"github.com/corvand/continuo/pkg/registry"
	"github.com/corvand/continuo/pkg/substrate"
	"github.com/corvand/continuo/pkg/substrate/journal"
	"github.com/corvand/continuo/pkg/substrate/local"
)

func newTestRegistry() *registry.Registry {
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterNode(output.NewOutputNodeFactory())
	reg.RegisterNode(transform.NewTransformNodeFactory())
	reg.RegisterNode(nodelog.NewLogNodeFactory())

	return reg
}

func runWorkflow(
	t *testing.T,
	def *models.WorkflowDefinition,
	inputs map[string]any,
	bus eventbus.EventPublisher,
) (*models.ExecutionResult, error) {
	t.Helper()

	executor := NewExecutor(slog.Default(), newTestRegistry(), bus, nil)
	sub := local.NewSubstrate(slog.Default(), journal.NewMemoryStore())

	var result *models.ExecutionResult

	err := sub.Run(context.Background(), "exec-test", func(ctx context.Context, sess substrate.Session) error {
		r, execErr := executor.Execute(ctx, sess, def, inputs)
		if execErr != nil {
			return execErr
		}

		result = r

		return nil
	})

	return result, err
}

func inputNode(id, inputName string) *models.Node {
	return &models.Node{
		ID:     id,
		Type:   models.NodeTypeInput,
		Config: map[string]any{"inputName": inputName},
	}
}

func outputNode(id, outputName, value string) *models.Node {
	return &models.Node{
		ID:     id,
		Type:   "output",
		Config: map[string]any{"outputName": outputName, "value": value},
	}
}

func logNode(id string) *models.Node {
	return &models.Node{
		ID:     id,
		Type:   "log",
		Config: map[string]any{"message": "visited " + id},
	}
}

func edge(source, target string) *models.Edge {
	return &models.Edge{ID: source + "->" + target, Source: source, Target: target}
}

func TestExecutor_InputToOutputPipeline(t *testing.T) {
	def := &models.WorkflowDefinition{
		ID:   "wf-1",
		Name: "pipeline",
		Nodes: map[string]*models.Node{
			"in":  inputNode("in", "x"),
			"out": outputNode("out", "y", "${x}"),
		},
		Edges: []*models.Edge{edge("in", "out")},
	}

	result, err := runWorkflow(t, def, map[string]any{"x": 5}, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.EqualValues(t, 5, result.Outputs["x"])
	assert.EqualValues(t, 5, result.Outputs["y"])
}

func TestExecutor_InputNodeNeverUsesRegistry(t *testing.T) {
	// An empty registry proves input nodes short-circuit node dispatch.
	executor := NewExecutor(slog.Default(), registry.NewRegistry(slog.Default()), nil, nil)
	sub := local.NewSubstrate(slog.Default(), journal.NewMemoryStore())

	def := &models.WorkflowDefinition{
		ID:    "wf-2",
		Nodes: map[string]*models.Node{"in": inputNode("in", "x")},
	}

	var result *models.ExecutionResult

	err := sub.Run(context.Background(), "exec-input", func(ctx context.Context, sess substrate.Session) error {
		r, execErr := executor.Execute(ctx, sess, def, map[string]any{"x": "hello"})
		result = r

		return execErr
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "hello", result.Outputs["x"])
}

func TestExecutor_InputNodeMissingInputIsNoOp(t *testing.T) {
	def := &models.WorkflowDefinition{
		ID:    "wf-3",
		Nodes: map[string]*models.Node{"in": inputNode("in", "absent")},
	}

	result, err := runWorkflow(t, def, map[string]any{}, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotContains(t, result.Outputs, "absent")
}

func TestExecutor_FailurePropagatesToDependents(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the full node retry policy")
	}

	def := &models.WorkflowDefinition{
		ID: "wf-4",
		Nodes: map[string]*models.Node{
			"a": {ID: "a", Type: "does-not-exist", Config: map[string]any{}},
			"b": logNode("b"),
			"c": logNode("c"),
		},
		Edges: []*models.Edge{edge("a", "b"), edge("b", "c")},
	}

	result, err := runWorkflow(t, def, nil, nil)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "node a:")
	assert.Contains(t, result.Error, "not implemented")
	assert.Contains(t, result.Error, "node b: Dependency failed")
	assert.Contains(t, result.Error, "node c: Dependency failed")
}

func TestExecutor_DiamondExecutesJoinOnce(t *testing.T) {
	def := &models.WorkflowDefinition{
		ID: "wf-5",
		Nodes: map[string]*models.Node{
			"a": logNode("a"),
			"b": logNode("b"),
			"c": logNode("c"),
			"d": outputNode("d", "done", "yes"),
		},
		Edges: []*models.Edge{
			edge("a", "b"), edge("a", "c"),
			edge("b", "d"), edge("c", "d"),
		},
	}

	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := runWorkflow(t, def, nil, bus)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "yes", result.Outputs["done"])

	order := completionOrder(bus)
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)

	completions := 0

	for _, id := range order {
		if id == "d" {
			completions++
		}
	}

	assert.Equal(t, 1, completions)
}

// completionOrder extracts node ids from NodeCompleted events in publish order.
func completionOrder(bus *mocks.MockEventBus) []string {
	var order []string

	for _, call := range bus.Calls {
		if event, ok := call.Arguments.Get(2).(events.NodeCompleted); ok {
			order = append(order, event.NodeID)
		}
	}

	return order
}

func TestExecutor_DiamondFencesJoinWhenBranchFails(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the full node retry policy")
	}

	def := &models.WorkflowDefinition{
		ID: "wf-10",
		Nodes: map[string]*models.Node{
			"a": logNode("a"),
			"b": logNode("b"),
			"c": {ID: "c", Type: "does-not-exist", Config: map[string]any{}},
			"d": outputNode("d", "done", "yes"),
		},
		Edges: []*models.Edge{
			edge("a", "b"), edge("a", "c"),
			edge("b", "d"), edge("c", "d"),
		},
	}

	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := runWorkflow(t, def, nil, bus)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "node c:")
	assert.Contains(t, result.Error, "node d: Dependency failed")
	assert.NotContains(t, result.Outputs, "done")

	// The join's body never ran: no start or completion event for it, and a
	// failure event for both the broken branch and the fenced join.
	failed := make(map[string]bool)

	for _, call := range bus.Calls {
		switch event := call.Arguments.Get(2).(type) {
		case events.NodeStarted:
			assert.NotEqual(t, "d", event.NodeID)
		case events.NodeCompleted:
			assert.NotEqual(t, "d", event.NodeID)
		case events.NodeFailed:
			failed[event.NodeID] = true
		}
	}

	assert.True(t, failed["c"])
	assert.True(t, failed["d"])
}

func TestExecutor_CycleIsSilentNoOp(t *testing.T) {
	def := &models.WorkflowDefinition{
		ID: "wf-6",
		Nodes: map[string]*models.Node{
			"a": logNode("a"),
			"b": logNode("b"),
		},
		Edges:      []*models.Edge{edge("a", "b"), edge("b", "a")},
		EntryPoint: "a",
	}

	result, err := runWorkflow(t, def, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestExecutor_InvalidDefinition(t *testing.T) {
	def := &models.WorkflowDefinition{ID: "wf-7", Nodes: map[string]*models.Node{}}

	_, err := runWorkflow(t, def, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid workflow definition")
}

func TestExecutor_EmitsLifecycleEvents(t *testing.T) {
	def := &models.WorkflowDefinition{
		ID:    "wf-8",
		Nodes: map[string]*models.Node{"out": outputNode("out", "v", "1")},
	}

	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := runWorkflow(t, def, nil, bus)
	require.NoError(t, err)
	require.True(t, result.Success)

	seen := make(map[events.EventType]bool)
	for _, call := range bus.Calls {
		if event, ok := call.Arguments.Get(2).(eventbus.Event); ok {
			seen[event.GetType()] = true
		}
	}

	assert.True(t, seen[events.ExecutionStartedEvent])
	assert.True(t, seen[events.NodeStartedEvent])
	assert.True(t, seen[events.NodeCompletedEvent])
	assert.True(t, seen[events.ExecutionProgressEvent])
	assert.True(t, seen[events.ExecutionCompletedEvent])
}

func TestGraph_StartNodes(t *testing.T) {
	def := &models.WorkflowDefinition{
		ID: "wf-9",
		Nodes: map[string]*models.Node{
			"in":    inputNode("in", "x"),
			"inner": logNode("inner"),
		},
		Edges: []*models.Edge{edge("in", "inner")},
	}

	g := buildGraph(def)

	assert.Equal(t, []string{"in"}, g.startNodes(""))
	assert.Equal(t, []string{"inner"}, g.startNodes("inner"))
	assert.Equal(t, []string{"in"}, g.startNodes("ghost"))
}
