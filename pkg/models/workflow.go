// Package models defines the core domain models for durable workflow and agent execution.
package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// OnErrorPolicy declares how a node reacts when its body fails after retries.
type OnErrorPolicy string

const (
	OnErrorContinue OnErrorPolicy = "continue"
	OnErrorFallback OnErrorPolicy = "fallback"
	OnErrorGoto     OnErrorPolicy = "goto"
	OnErrorFail     OnErrorPolicy = "fail"
)

// NodeTypeInput is the reserved node type whose body copies a named run input
// into the execution context instead of dispatching to a node handler.
const NodeTypeInput = "input"

// Node is a single unit of work in a workflow graph. Position fields are
// editor metadata and are ignored by the engine.
type Node struct {
	ID        string         `json:"id"         validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config"`
	OnError   OnErrorPolicy  `json:"on_error,omitempty"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
}

// Edge is a directed dependency between two nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"        validate:"required"`
	Target       string `json:"target"        validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// WorkflowDefinition is the static node/edge graph an execution runs.
type WorkflowDefinition struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Nodes      map[string]*Node `json:"nodes"       validate:"required"`
	Edges      []*Edge          `json:"edges"`
	EntryPoint string           `json:"entry_point,omitempty"`
}

var (
	ErrNoNodes        = errors.New("workflow has no nodes")
	ErrNodeIDMismatch = errors.New("node id does not match its map key")
	ErrDanglingEdge   = errors.New("edge references unknown node")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural integrity of the definition: node ids are
// consistent with their map keys and every edge endpoint exists.
func (w *WorkflowDefinition) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid workflow definition: %w", err)
	}

	if len(w.Nodes) == 0 {
		return ErrNoNodes
	}

	for id, node := range w.Nodes {
		if node.ID != "" && node.ID != id {
			return fmt.Errorf("%w: key %q, node id %q", ErrNodeIDMismatch, id, node.ID)
		}

		if err := validate.Struct(node); err != nil {
			return fmt.Errorf("invalid node %q: %w", id, err)
		}
	}

	for _, edge := range w.Edges {
		if _, ok := w.Nodes[edge.Source]; !ok {
			return fmt.Errorf("%w: source %q", ErrDanglingEdge, edge.Source)
		}

		if _, ok := w.Nodes[edge.Target]; !ok {
			return fmt.Errorf("%w: target %q", ErrDanglingEdge, edge.Target)
		}
	}

	return nil
}
