// Package output provides the output node: it resolves a configured value
// against the execution context and exposes it under a named output variable.
package output

import (
	"context"
	"errors"

	"github.com/corvand/continuo/pkg/template"
)

// OutputNode implements the Node interface for collecting workflow outputs.
type OutputNode struct {
	id         string
	outputName string
	value      any
}

// NewOutputNode creates a new output node.
func NewOutputNode(id string, config map[string]any) (*OutputNode, error) {
	outputName, ok := config["outputName"].(string)
	if !ok || outputName == "" {
		return nil, errors.New("missing required field 'outputName'")
	}

	value, ok := config["value"]
	if !ok {
		return nil, errors.New("missing required field 'value'")
	}

	return &OutputNode{
		id:         id,
		outputName: outputName,
		value:      value,
	}, nil
}

// ID returns the node ID.
func (n *OutputNode) ID() string {
	return n.id
}

// Execute resolves the configured value against the context snapshot. A
// whole-string `${ref}` keeps the referenced value's type.
func (n *OutputNode) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	resolved, err := template.RenderValue(n.value, input)
	if err != nil {
		return nil, err
	}

	return map[string]any{n.outputName: resolved}, nil
}
