package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"plugin"

	"github.com/corvand/continuo/pkg/protocol"
)

// AgentPorts bundles the externally provided transports an agent run needs.
// Both come from compiled plugins; a worker without them still serves
// workflow executions.
type AgentPorts struct {
	LLM   protocol.LLMClient
	Tools protocol.ToolExecutor
}

// Enabled reports whether this worker can serve agent runs.
func (p *AgentPorts) Enabled() bool {
	return p != nil && p.LLM != nil && p.Tools != nil
}

// loadAgentPorts loads the LLM client and tool executor plugins from
// pluginsPath/agent, exporting "LLMClient" and "ToolExecutor" symbols.
// A missing directory disables agent runs rather than failing startup.
func loadAgentPorts(ctx context.Context, logger *slog.Logger, pluginsPath string) (*AgentPorts, error) {
	if pluginsPath == "" {
		return nil, nil
	}

	path := pluginsPath + "/agent/agent.so"
	if _, err := os.Stat(path); err != nil {
		logger.InfoContext(ctx, "No agent plugin found, agent runs disabled", "path", path)

		return nil, nil
	}

	plg, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open agent plugin: %w", err)
	}

	llmSym, err := plg.Lookup("LLMClient")
	if err != nil {
		return nil, fmt.Errorf("agent plugin has no LLMClient symbol: %w", err)
	}

	llm, ok := llmSym.(protocol.LLMClient)
	if !ok {
		return nil, fmt.Errorf("agent plugin LLMClient symbol is not a protocol.LLMClient")
	}

	toolsSym, err := plg.Lookup("ToolExecutor")
	if err != nil {
		return nil, fmt.Errorf("agent plugin has no ToolExecutor symbol: %w", err)
	}

	tools, ok := toolsSym.(protocol.ToolExecutor)
	if !ok {
		return nil, fmt.Errorf("agent plugin ToolExecutor symbol is not a protocol.ToolExecutor")
	}

	logger.InfoContext(ctx, "Loaded agent plugin", "path", path)

	return &AgentPorts{LLM: llm, Tools: tools}, nil
}
