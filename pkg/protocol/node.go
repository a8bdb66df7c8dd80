// Package protocol defines the interfaces and contracts for the engine's external ports.
package protocol

import (
	"context"
)

// Node is a configured node instance, ready to run against a context snapshot.
type Node interface {
	// ID returns the node instance identifier
	ID() string

	// Execute runs the node body against a snapshot of the execution context
	// and returns a map of variables to merge back into it
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}
