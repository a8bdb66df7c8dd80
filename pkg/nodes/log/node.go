// Package log provides the logging node for workflow graph execution.
package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corvand/continuo/pkg/template"
)

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LogNode implements the Node interface for logging messages.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok {
		if !validLevels[lvl] {
			return nil, fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", lvl)
		}

		level = lvl
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.Default(),
	}, nil
}

// ID returns the node ID.
func (n *LogNode) ID() string {
	return n.id
}

// Execute renders the message against the context snapshot and logs it at the
// configured level. Nothing is merged back into the context.
func (n *LogNode) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	rendered, err := template.Render(n.message, input)
	if err != nil {
		return nil, fmt.Errorf("failed to render log message: %w", err)
	}

	message := fmt.Sprintf("%v", rendered)
	logger := n.logger.With("node_id", n.id, "node_type", "log")

	switch n.level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return map[string]any{}, nil
}
