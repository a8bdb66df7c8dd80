package agentconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Get(t *testing.T) {
	root := t.TempDir()

	config := `{
		"name": "Helper",
		"system_prompt": "You are a helpful assistant.",
		"model": "gpt-4o",
		"provider": "openai",
		"max_iterations": 20,
		"memory": {"max_messages": 10}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "helper.json"), []byte(config), 0o600))

	store := NewFileStore(root)

	loaded, err := store.Get(context.Background(), "helper", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "helper", loaded.ID)
	assert.Equal(t, "Helper", loaded.Name)
	assert.Equal(t, 20, loaded.MaxIterations)
	assert.Equal(t, 10, loaded.Memory.MaxMessages)
}

func TestFileStore_Get_NotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Get(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, ErrAgentNotFound)
}

func TestFileStore_Get_InvalidJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.json"), []byte("{"), 0o600))

	store := NewFileStore(root)

	_, err := store.Get(context.Background(), "broken", "user-1")
	require.Error(t, err)
}
