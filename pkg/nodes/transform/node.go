// Package transform provides the transform node: it resolves a mapping of
// expressions against the execution context and merges the result back in.
package transform

import (
	"context"
	"errors"

	"github.com/corvand/continuo/pkg/template"
)

// TransformNode implements the Node interface for reshaping context data.
type TransformNode struct {
	id      string
	mapping map[string]any
}

// NewTransformNode creates a new transform node.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	mapping, ok := config["mapping"].(map[string]any)
	if !ok || len(mapping) == 0 {
		return nil, errors.New("missing required field 'mapping'")
	}

	return &TransformNode{
		id:      id,
		mapping: mapping,
	}, nil
}

// ID returns the node ID.
func (n *TransformNode) ID() string {
	return n.id
}

// Execute resolves every mapping entry against the context snapshot. Each key
// becomes a variable; whole-string `${ref}` values keep the referenced type.
func (n *TransformNode) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	outputs := make(map[string]any, len(n.mapping))

	for key, expression := range n.mapping {
		resolved, err := template.RenderValue(expression, input)
		if err != nil {
			return nil, err
		}

		outputs[key] = resolved
	}

	return outputs, nil
}
