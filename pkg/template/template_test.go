package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_NoReferences(t *testing.T) {
	result, err := Render("plain text", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "plain text", result)
}

func TestRender_WholeReferenceKeepsType(t *testing.T) {
	data := map[string]any{
		"count": 42,
		"tags":  []any{"a", "b"},
		"user":  map[string]any{"name": "ada"},
	}

	result, err := Render("${count}", data)
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	result, err = Render("${tags}", data)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, result)

	result, err = Render("${user}", data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada"}, result)
}

func TestRender_Interpolation(t *testing.T) {
	data := map[string]any{
		"user":  map[string]any{"name": "ada"},
		"score": 7,
	}

	result, err := Render("${user.name} scored ${score}", data)
	require.NoError(t, err)
	assert.Equal(t, "ada scored 7", result)
}

func TestRender_DottedPath(t *testing.T) {
	data := map[string]any{
		"order": map[string]any{
			"customer": map[string]any{"id": "c-9"},
		},
	}

	result, err := Render("${order.customer.id}", data)
	require.NoError(t, err)
	assert.Equal(t, "c-9", result)
}

func TestRender_MissingKey(t *testing.T) {
	_, err := Render("${missing}", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRender_PathThroughNonObject(t *testing.T) {
	_, err := Render("${x.y}", map[string]any{"x": 5})
	require.Error(t, err)
}

func TestRenderValue_Recursive(t *testing.T) {
	data := map[string]any{"name": "ada", "id": 3}

	value := map[string]any{
		"label": "user ${name}",
		"raw":   "${id}",
		"list":  []any{"${name}", 1},
		"num":   12,
	}

	result, err := RenderValue(value, data)
	require.NoError(t, err)

	resolved, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user ada", resolved["label"])
	assert.Equal(t, 3, resolved["raw"])
	assert.Equal(t, []any{"ada", 1}, resolved["list"])
	assert.Equal(t, 12, resolved["num"])
}
