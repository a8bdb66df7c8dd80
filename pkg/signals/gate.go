// Package signals provides the generic suspend-until-external-input building
// block used for human-in-the-loop waits.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corvand/continuo/pkg/substrate"
)

// State is the gate lifecycle: WAITING until a delivery or timeout, then
// terminal.
type State string

const (
	StateWaiting  State = "WAITING"
	StateReceived State = "RECEIVED"
	StateTimedOut State = "TIMED_OUT"
)

// Result is the outcome of one Wait call.
type Result struct {
	Received bool `json:"received"`
	TimedOut bool `json:"timed_out,omitempty"`
	Value    any  `json:"value,omitempty"`
}

// WaitGate supervises one named durable signal channel. The gate's state
// lives in the substrate journal, so it survives crash/resume; the struct
// itself is just a handle.
type WaitGate struct {
	channel substrate.SignalChannel
	state   State
}

// NewWaitGate opens a gate over the named channel of the session's execution.
func NewWaitGate(sess substrate.Session, name string) *WaitGate {
	return &WaitGate{
		channel: sess.Signal(name),
		state:   StateWaiting,
	}
}

// State returns the last observed gate state.
func (g *WaitGate) State() State {
	return g.state
}

// Signal delivers a payload to the gate. The first delivery is the one that
// matters; later deliveries before consumption overwrite the pending value.
func (g *WaitGate) Signal(ctx context.Context, payload any) error {
	return g.channel.Send(ctx, payload)
}

// HasReceived reports whether a delivery is pending, without consuming it.
// Safe to poll externally at any time.
func (g *WaitGate) HasReceived(ctx context.Context) (bool, error) {
	return g.channel.Poll(ctx)
}

// Wait suspends until a delivery arrives or the timeout elapses. While
// suspended the orchestration consumes no host compute; that property comes
// from the substrate, not from this type.
func (g *WaitGate) Wait(ctx context.Context, timeout time.Duration) (Result, error) {
	outcome, err := g.channel.Receive(ctx, timeout)
	if err != nil {
		return Result{}, fmt.Errorf("signal wait failed: %w", err)
	}

	if outcome.TimedOut {
		g.state = StateTimedOut

		return Result{TimedOut: true}, nil
	}

	g.state = StateReceived

	var value any
	if len(outcome.Payload) > 0 {
		if err := json.Unmarshal(outcome.Payload, &value); err != nil {
			return Result{}, fmt.Errorf("failed to decode signal payload: %w", err)
		}
	}

	return Result{Received: true, Value: value}, nil
}
