package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvand/continuo/pkg/nodes/log"
	"github.com/corvand/continuo/pkg/nodes/output"
)

func TestRegistry_CreateNode(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterNode(output.NewOutputNodeFactory())

	node, err := reg.CreateNode(context.Background(), "output", "out-1", map[string]any{
		"outputName": "result",
		"value":      "${x}",
	})
	require.NoError(t, err)
	assert.Equal(t, "out-1", node.ID())
}

func TestRegistry_CreateNode_UnknownType(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, err := reg.CreateNode(context.Background(), "ghost", "g-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node type 'ghost' not implemented")
}

func TestRegistry_CreateNode_ConfigSchemaViolation(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterNode(log.NewLogNodeFactory())

	// "message" is required by the schema.
	_, err := reg.CreateNode(context.Background(), "log", "log-1", map[string]any{"level": "info"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigSchema)
}

func TestRegistry_AvailableNodes(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterNode(output.NewOutputNodeFactory())
	reg.RegisterNode(log.NewLogNodeFactory())

	available := reg.AvailableNodes()
	assert.ElementsMatch(t, []string{"output", "log"}, available)
}
