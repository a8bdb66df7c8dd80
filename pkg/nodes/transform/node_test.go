package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformNode_Execute(t *testing.T) {
	node, err := NewTransformNode("tx", map[string]any{
		"mapping": map[string]any{
			"total": "${order.amount}",
			"label": "order ${order.id}",
		},
	})
	require.NoError(t, err)

	outputs, err := node.Execute(context.Background(), map[string]any{
		"order": map[string]any{"id": "o-1", "amount": 12.5},
	})
	require.NoError(t, err)

	assert.Equal(t, 12.5, outputs["total"])
	assert.Equal(t, "order o-1", outputs["label"])
}

func TestTransformNode_Execute_MissingReference(t *testing.T) {
	node, err := NewTransformNode("tx", map[string]any{
		"mapping": map[string]any{"value": "${missing.path}"},
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestNewTransformNode_MissingMapping(t *testing.T) {
	_, err := NewTransformNode("tx", map[string]any{})
	require.Error(t, err)

	_, err = NewTransformNode("tx", map[string]any{"mapping": map[string]any{}})
	require.Error(t, err)
}

func TestTransformNodeFactory(t *testing.T) {
	factory := NewTransformNodeFactory()

	assert.Equal(t, "transform", factory.ID())
	assert.Equal(t, "Transform", factory.Name())
	require.NotNil(t, factory.Schema())
}
