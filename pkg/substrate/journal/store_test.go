package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvand/continuo/pkg/substrate"
)

// Both local stores must satisfy the same contract; Redis is covered by its
// own integration setup and shares none of this file's fixtures.
func stores(t *testing.T) map[string]substrate.JournalStore {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	return map[string]substrate.JournalStore{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestJournalStore_AppendAndRecords(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Records(ctx, "missing")
			require.ErrorIs(t, err, substrate.ErrJournalNotFound)

			payload, _ := json.Marshal(map[string]any{"x": 1})
			require.NoError(t, store.Append(ctx, "exec-1", &substrate.Record{
				Sequence:   1,
				Kind:       substrate.RecordKindActivity,
				Name:       "step",
				Success:    true,
				Payload:    payload,
				RecordedAt: time.Now().UTC(),
			}))

			records, err := store.Records(ctx, "exec-1")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, 1, records[0].Sequence)
			assert.Equal(t, substrate.RecordKindActivity, records[0].Kind)
			assert.Equal(t, "step", records[0].Name)
			assert.True(t, records[0].Success)
		})
	}
}

func TestJournalStore_ResetKeepsContinuation(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Append(ctx, "exec-2", &substrate.Record{
				Sequence: 1, Kind: substrate.RecordKindTimer, Success: true,
			}))

			state := []byte(`{"iteration":50}`)
			require.NoError(t, store.Reset(ctx, "exec-2", state))

			records, err := store.Records(ctx, "exec-2")
			require.NoError(t, err)
			assert.Empty(t, records)

			continuation, ok, err := store.Continuation(ctx, "exec-2")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `{"iteration":50}`, string(continuation))
		})
	}
}

func TestJournalStore_Signals(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, pending, err := store.PendingSignal(ctx, "exec-3", "input")
			require.NoError(t, err)
			assert.False(t, pending)

			require.NoError(t, store.SetSignal(ctx, "exec-3", "input", []byte(`"first"`)))
			require.NoError(t, store.SetSignal(ctx, "exec-3", "input", []byte(`"second"`)))

			payload, pending, err := store.PendingSignal(ctx, "exec-3", "input")
			require.NoError(t, err)
			require.True(t, pending)
			assert.JSONEq(t, `"second"`, string(payload))

			require.NoError(t, store.ClearSignal(ctx, "exec-3", "input"))

			_, pending, err = store.PendingSignal(ctx, "exec-3", "input")
			require.NoError(t, err)
			assert.False(t, pending)
		})
	}
}

func TestJournalStore_Heartbeat(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.LastHeartbeat(ctx, "exec-4")
			require.NoError(t, err)
			assert.False(t, ok)

			at := time.Now().UTC().Truncate(time.Second)
			require.NoError(t, store.SetHeartbeat(ctx, "exec-4", at, nil))

			got, ok, err := store.LastHeartbeat(ctx, "exec-4")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, at, got)
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(root)
	require.NoError(t, err)

	require.NoError(t, first.Append(ctx, "exec-5", &substrate.Record{
		Sequence: 1, Kind: substrate.RecordKindActivity, Name: "step", Success: true,
	}))
	require.NoError(t, first.SetSignal(ctx, "exec-5", "input", []byte(`true`)))

	second, err := NewFileStore(root)
	require.NoError(t, err)

	records, err := second.Records(ctx, "exec-5")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "step", records[0].Name)

	_, pending, err := second.PendingSignal(ctx, "exec-5", "input")
	require.NoError(t, err)
	assert.True(t, pending)
}
