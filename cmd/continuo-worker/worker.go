package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/corvand/continuo/pkg/agent"
	"github.com/corvand/continuo/pkg/agentconfig"
	"github.com/corvand/continuo/pkg/eventbus"
	"github.com/corvand/continuo/pkg/events"
	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/otelhelper"
	"github.com/corvand/continuo/pkg/persistence"
	"github.com/corvand/continuo/pkg/registry"
	"github.com/corvand/continuo/pkg/substrate"
	"github.com/corvand/continuo/pkg/substrate/local"
	"github.com/corvand/continuo/pkg/workflow"
)

type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	substrate   *local.Substrate
	agentsPath  string
	agentPorts  *AgentPorts
	tracer      trace.Tracer
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	reg *registry.Registry,
	journal substrate.JournalStore,
	agentsPath string,
	agentPorts *AgentPorts,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "continuo-worker", "worker_id", id),
		persistence: store,
		registry:    reg,
		eventBus:    eventBus,
		substrate:   local.NewSubstrate(logger, journal),
		agentsPath:  agentsPath,
		agentPorts:  agentPorts,
		tracer:      noop.NewTracerProvider().Tracer("continuo-worker"),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	tracer, err := otelhelper.NewTracer(ctx, "continuo-worker")
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		w.tracer = tracer
	}

	err = w.eventBus.Handle(events.WorkflowExecutionRequestedEvent, w.handleWorkflowRequested)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.AgentExecutionRequestedEvent, w.handleAgentRequested)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleWorkflowRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.WorkflowExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowExecutionRequested")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.workflow_requested",
		attribute.String(otelhelper.WorkflowIDKey, requested.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, requested.ExecutionID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"workflow_id", requested.WorkflowID,
		"execution_id", requested.ExecutionID,
		"event_id", requested.ID,
	)
	logger.InfoContext(ctx, "Processing workflow execution request")

	if requested.Definition == nil {
		logger.ErrorContext(ctx, "Workflow execution request carries no definition")

		return nil
	}

	if err := w.ensureRecord(ctx, &models.ExecutionRecord{
		ID:         requested.ExecutionID,
		WorkflowID: requested.WorkflowID,
		Status:     models.ExecutionStatusPending,
		Inputs:     requested.Inputs,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to create execution record", "error", err)

		return err
	}

	executor := workflow.NewExecutor(logger, w.registry, w.eventBus, w.persistence)

	err := w.substrate.Run(ctx, requested.ExecutionID, func(ctx context.Context, sess substrate.Session) error {
		_, execErr := executor.Execute(ctx, sess, requested.Definition, requested.Inputs)

		return execErr
	})
	if err != nil {
		logger.ErrorContext(ctx, "Workflow execution failed", "error", err)
		otelhelper.SetError(span, err)

		return err
	}

	return nil
}

func (w *WorkerManager) handleAgentRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.AgentExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for AgentExecutionRequested")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.agent_requested",
		attribute.String(otelhelper.AgentIDKey, requested.AgentID),
		attribute.String(otelhelper.ExecutionIDKey, requested.ExecutionID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"agent_id", requested.AgentID,
		"execution_id", requested.ExecutionID,
		"event_id", requested.ID,
	)
	logger.InfoContext(ctx, "Processing agent execution request")

	if !w.agentPorts.Enabled() {
		logger.ErrorContext(ctx, "Agent runs are disabled on this worker, no agent plugin loaded")

		return nil
	}

	if err := w.ensureRecord(ctx, &models.ExecutionRecord{
		ID:        requested.ExecutionID,
		AgentID:   requested.AgentID,
		Status:    models.ExecutionStatusPending,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to create execution record", "error", err)

		return err
	}

	orchestrator := agent.NewOrchestrator(
		logger,
		agentconfig.NewFileStore(w.agentsPath),
		w.agentPorts.LLM,
		w.agentPorts.Tools,
		w.persistence,
		w.eventBus,
	)

	err := w.substrate.Run(ctx, requested.ExecutionID, func(ctx context.Context, sess substrate.Session) error {
		_, runErr := orchestrator.Run(ctx, sess, agent.RunInput{
			AgentID:        requested.AgentID,
			UserID:         requested.UserID,
			InitialMessage: requested.InitialMessage,
		})

		return runErr
	})
	if err != nil {
		logger.ErrorContext(ctx, "Agent execution failed", "error", err)
		otelhelper.SetError(span, err)

		return err
	}

	return nil
}

// ensureRecord creates the execution record, treating an already existing one
// as a redelivery of the same request.
func (w *WorkerManager) ensureRecord(ctx context.Context, record *models.ExecutionRecord) error {
	err := w.persistence.ExecutionRepository().Create(ctx, record)
	if err != nil && !errors.Is(err, persistence.ErrExecutionAlreadyExists) {
		return err
	}

	return nil
}
