package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvand/continuo/pkg/channels/gochannel"
	"github.com/corvand/continuo/pkg/eventbus"
	"github.com/corvand/continuo/pkg/events"
	"github.com/corvand/continuo/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan *events.ExecutionCompleted, 1)

	err := bus.Handle(events.ExecutionCompletedEvent, func(ctx context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)
		received <- completed

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	err = bus.Publish(ctx, "exec-1", events.ExecutionCompleted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionCompletedEvent, "exec-1"),
		FinalMessage: "done",
		Iterations:   3,
	})
	require.NoError(t, err)

	select {
	case completed := <-received:
		assert.Equal(t, "exec-1", completed.ExecutionID)
		assert.Equal(t, "done", completed.FinalMessage)
		assert.Equal(t, 3, completed.Iterations)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_RequestEventsReachWorkers(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan *events.WorkflowExecutionRequested, 1)

	err := bus.Handle(events.WorkflowExecutionRequestedEvent, func(ctx context.Context, event any) error {
		requested, ok := event.(*events.WorkflowExecutionRequested)
		require.True(t, ok)
		received <- requested

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	definition := &models.WorkflowDefinition{
		ID: "wf-1",
		Nodes: map[string]*models.Node{
			"in": {ID: "in", Type: models.NodeTypeInput, Config: map[string]any{"inputName": "x"}},
		},
	}

	err = bus.Publish(ctx, "exec-2", events.WorkflowExecutionRequested{
		BaseEvent:  events.NewBaseEvent(events.WorkflowExecutionRequestedEvent, "exec-2"),
		WorkflowID: "wf-1",
		Definition: definition,
		Inputs:     map[string]any{"x": 1},
	})
	require.NoError(t, err)

	select {
	case requested := <-received:
		assert.Equal(t, "wf-1", requested.WorkflowID)
		require.NotNil(t, requested.Definition)
		assert.Contains(t, requested.Definition.Nodes, "in")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request event")
	}
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered; publishing must not error or wedge the stream.
	err := bus.Publish(ctx, "exec-3", events.AgentThinking{
		BaseEvent: events.NewBaseEvent(events.AgentThinkingEvent, "exec-3"),
		AgentID:   "agent-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, bus.GenerateID())
}
