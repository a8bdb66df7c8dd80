package signals_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvand/continuo/pkg/signals"
	"github.com/corvand/continuo/pkg/substrate"
	"github.com/corvand/continuo/pkg/substrate/journal"
	"github.com/corvand/continuo/pkg/substrate/local"
)

func runGate(t *testing.T, sub *local.Substrate, executionID string, fn func(ctx context.Context, gate *signals.WaitGate) error) {
	t.Helper()

	err := sub.Run(context.Background(), executionID, func(ctx context.Context, sess substrate.Session) error {
		return fn(ctx, signals.NewWaitGate(sess, "approval"))
	})
	require.NoError(t, err)
}

func TestWaitGate_ReceivesSignal(t *testing.T) {
	sub := local.NewSubstrate(slog.Default(), journal.NewMemoryStore())

	go func() {
		time.Sleep(20 * time.Millisecond)

		err := sub.Signal(context.Background(), "gate-1", "approval", map[string]any{"approved": true})
		assert.NoError(t, err)
	}()

	runGate(t, sub, "gate-1", func(ctx context.Context, gate *signals.WaitGate) error {
		result, err := gate.Wait(ctx, time.Second)
		if err != nil {
			return err
		}

		require.True(t, result.Received)
		assert.False(t, result.TimedOut)
		assert.Equal(t, signals.StateReceived, gate.State())

		value, ok := result.Value.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, value["approved"])

		return nil
	})
}

func TestWaitGate_Timeout(t *testing.T) {
	sub := local.NewSubstrate(slog.Default(), journal.NewMemoryStore())

	runGate(t, sub, "gate-2", func(ctx context.Context, gate *signals.WaitGate) error {
		result, err := gate.Wait(ctx, 30*time.Millisecond)
		if err != nil {
			return err
		}

		assert.False(t, result.Received)
		assert.True(t, result.TimedOut)
		assert.Equal(t, signals.StateTimedOut, gate.State())

		return nil
	})
}

func TestWaitGate_PollWithoutConsuming(t *testing.T) {
	sub := local.NewSubstrate(slog.Default(), journal.NewMemoryStore())

	require.NoError(t, sub.Signal(context.Background(), "gate-3", "approval", "yes"))

	runGate(t, sub, "gate-3", func(ctx context.Context, gate *signals.WaitGate) error {
		pending, err := gate.HasReceived(ctx)
		require.NoError(t, err)
		assert.True(t, pending)

		// Polling does not consume: the wait still receives the payload.
		result, err := gate.Wait(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, result.Received)
		assert.Equal(t, "yes", result.Value)

		return nil
	})
}

func TestWaitGate_SendThroughGate(t *testing.T) {
	sub := local.NewSubstrate(slog.Default(), journal.NewMemoryStore())

	runGate(t, sub, "gate-4", func(ctx context.Context, gate *signals.WaitGate) error {
		require.NoError(t, gate.Signal(ctx, "self"))

		result, err := gate.Wait(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, result.Received)
		assert.Equal(t, "self", result.Value)

		return nil
	})
}
