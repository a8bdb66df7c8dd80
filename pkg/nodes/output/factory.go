// Package output provides the output node factory for registry integration.
package output

import (
	"context"

	"github.com/corvand/continuo/pkg/protocol"
)

// OutputNodeFactory creates OutputNode instances.
type OutputNodeFactory struct{}

// Create creates a new OutputNode instance.
func (f *OutputNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewOutputNode(id, config)
}

// ID returns the factory ID.
func (f *OutputNodeFactory) ID() string {
	return "output"
}

// Name returns the factory name.
func (f *OutputNodeFactory) Name() string {
	return "Output"
}

// Description returns the factory description.
func (f *OutputNodeFactory) Description() string {
	return "Resolves a value against the execution context and publishes it under a named output variable"
}

// Schema returns the JSON schema for Output node configuration.
func (f *OutputNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outputName": map[string]any{
				"type":        "string",
				"description": "Variable name the resolved value is published under",
				"examples":    []string{"result", "summary", "total"},
			},
			"value": map[string]any{
				"description": "Value to publish. Strings support ${path} references into the execution context; a whole-string reference keeps the referenced value's type.",
				"examples": []any{
					"${x}",
					"user ${user.name} scored ${score}",
					map[string]any{"id": "${order.id}", "status": "done"},
				},
			},
		},
		"required": []string{"outputName", "value"},
	}
}

// NewOutputNodeFactory creates a new factory instance.
func NewOutputNodeFactory() protocol.NodeFactory {
	return &OutputNodeFactory{}
}
