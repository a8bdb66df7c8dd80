// Package substrate defines the minimal contract a durable execution host
// must provide for replay-safe orchestration: retried side-effect invocations,
// deterministic timers, durable signals, heartbeats, and checkpoint-and-restart.
package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RetryPolicy governs how an activity invocation is retried before it becomes
// a terminal failure for that call.
type RetryPolicy struct {
	MaxAttempts        int           `json:"max_attempts"`
	InitialInterval    time.Duration `json:"initial_interval"`
	BackoffCoefficient float64       `json:"backoff_coefficient"`
	MaxInterval        time.Duration `json:"max_interval"`
}

// DefaultRetryPolicy is the policy node bodies and model calls run under
// unless the caller overrides it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaxInterval:        30 * time.Second,
	}
}

// SingleAttempt disables retries entirely.
func SingleAttempt() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// ActivityOptions configure one activity invocation.
type ActivityOptions struct {
	RetryPolicy RetryPolicy
	Timeout     time.Duration
}

// Activity is a unit of external work. It may be invoked more than once; the
// substrate guarantees its recorded result is returned exactly once to the
// orchestration on replay.
type Activity func(ctx context.Context) (map[string]any, error)

// SignalResult is the outcome of waiting on a signal channel.
type SignalResult struct {
	Received bool            `json:"received"`
	TimedOut bool            `json:"timed_out"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// SignalChannel is a named durable inbound channel. At least the most recent
// value is retained until consumed.
type SignalChannel interface {
	// Name returns the channel name
	Name() string

	// Send delivers a payload. Deliveries before consumption overwrite the
	// pending value (last-write-wins).
	Send(ctx context.Context, payload any) error

	// Poll reports whether a value is pending without consuming it
	Poll(ctx context.Context) (bool, error)

	// Receive suspends until a value arrives or the timeout elapses,
	// consuming the pending value on receipt
	Receive(ctx context.Context, timeout time.Duration) (SignalResult, error)
}

// Session is the per-execution handle orchestration code runs against. All
// suspension points go through it so the host can journal and replay them.
type Session interface {
	// ExecutionID returns the externally visible execution id, stable across
	// checkpoint-and-restart boundaries
	ExecutionID() string

	// ContinuationState unmarshals the state payload carried over the last
	// checkpoint-and-restart into v, reporting whether one exists
	ContinuationState(v any) (bool, error)

	// ExecuteActivity invokes a side-effecting call under the given retry
	// policy and timeout. Exhausting retries is a terminal failure for the
	// call. Results are journaled: on replay the recorded outcome is returned
	// without re-executing the body.
	ExecuteActivity(ctx context.Context, name string, opts ActivityOptions, fn Activity) (map[string]any, error)

	// Sleep is a durable timer: it replays identically after crash/resume
	Sleep(ctx context.Context, d time.Duration) error

	// Signal returns the named durable signal channel for this execution
	Signal(name string) SignalChannel

	// ContinueAsNew returns a sentinel error the orchestration must propagate
	// to atomically end the current logical run and start a new one carrying
	// state, under the same execution id
	ContinueAsNew(state any) error

	// RecordHeartbeat marks the execution live for stall detection
	RecordHeartbeat(ctx context.Context, details any)
}

// Orchestration is replay-safe orchestration code: all side effects, timers
// and waits must go through the session.
type Orchestration func(ctx context.Context, sess Session) error

// Substrate is the durable execution host.
type Substrate interface {
	// Run drives an orchestration under the given execution id until it
	// completes, fails terminally, or the context is cancelled. Internal
	// checkpoint-and-restart cycles are invisible to the caller.
	Run(ctx context.Context, executionID string, fn Orchestration) error

	// Signal delivers a payload to a named channel of a (possibly suspended)
	// execution
	Signal(ctx context.Context, executionID, name string, payload any) error
}

// ErrActivityExhausted wraps the last attempt's error once a retry policy is
// spent.
var ErrActivityExhausted = errors.New("activity retries exhausted")

// ContinueAsNewError carries the state payload across a checkpoint-and-restart
// boundary. Orchestrations obtain one from Session.ContinueAsNew and return it
// unchanged.
type ContinueAsNewError struct {
	State json.RawMessage
}

func (e *ContinueAsNewError) Error() string {
	return "continue as new"
}

// IsContinueAsNew reports whether err is a continuation request.
func IsContinueAsNew(err error) bool {
	var cont *ContinueAsNewError

	return errors.As(err, &cont)
}
