package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputNode_Execute_WholeReferenceKeepsType(t *testing.T) {
	node, err := NewOutputNode("out", map[string]any{
		"outputName": "result",
		"value":      "${x}",
	})
	require.NoError(t, err)

	outputs, err := node.Execute(context.Background(), map[string]any{"x": 42})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"result": 42}, outputs)
}

func TestOutputNode_Execute_Interpolation(t *testing.T) {
	node, err := NewOutputNode("out", map[string]any{
		"outputName": "greeting",
		"value":      "hello ${user.name}",
	})
	require.NoError(t, err)

	outputs, err := node.Execute(context.Background(), map[string]any{
		"user": map[string]any{"name": "ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello ada", outputs["greeting"])
}

func TestOutputNode_Execute_StructuredValue(t *testing.T) {
	node, err := NewOutputNode("out", map[string]any{
		"outputName": "payload",
		"value": map[string]any{
			"id":     "${order.id}",
			"status": "done",
		},
	})
	require.NoError(t, err)

	outputs, err := node.Execute(context.Background(), map[string]any{
		"order": map[string]any{"id": "o-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": "o-1", "status": "done"}, outputs["payload"])
}

func TestOutputNode_Execute_MissingReference(t *testing.T) {
	node, err := NewOutputNode("out", map[string]any{
		"outputName": "result",
		"value":      "${missing}",
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestNewOutputNode_MissingConfig(t *testing.T) {
	_, err := NewOutputNode("out", map[string]any{"value": "x"})
	require.Error(t, err)

	_, err = NewOutputNode("out", map[string]any{"outputName": "result"})
	require.Error(t, err)
}

func TestOutputNodeFactory(t *testing.T) {
	factory := NewOutputNodeFactory()

	assert.Equal(t, "output", factory.ID())
	assert.Equal(t, "Output", factory.Name())

	schema := factory.Schema()
	require.NotNil(t, schema)

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "outputName")
	assert.Contains(t, properties, "value")

	node, err := factory.Create(context.Background(), "out", map[string]any{
		"outputName": "result",
		"value":      "${x}",
	})
	require.NoError(t, err)
	assert.Equal(t, "out", node.ID())
}
