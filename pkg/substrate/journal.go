package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RecordKind distinguishes journaled suspension points.
type RecordKind string

const (
	RecordKindActivity RecordKind = "activity"
	RecordKindTimer    RecordKind = "timer"
	RecordKindSignal   RecordKind = "signal"
)

// Record is one journaled suspension-point outcome. Records are keyed by the
// deterministic sequence number the orchestration reached them at, which is
// what makes replay line up with the original run.
type Record struct {
	Sequence   int             `json:"sequence"`
	Kind       RecordKind      `json:"kind"`
	Name       string          `json:"name"`
	Success    bool            `json:"success"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Failure    string          `json:"failure,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// ErrJournalNotFound indicates no journal exists for the execution.
var ErrJournalNotFound = errors.New("journal not found")

// JournalStore persists the event-sourced state of one logical run: outcome
// records, pending signal values, heartbeats, and the continuation payload
// carried across checkpoint-and-restart boundaries.
type JournalStore interface {
	Append(ctx context.Context, executionID string, record *Record) error
	Records(ctx context.Context, executionID string) ([]*Record, error)

	// Reset atomically clears the record history and stores the continuation
	// payload, ending the current logical run
	Reset(ctx context.Context, executionID string, continuation []byte) error
	Continuation(ctx context.Context, executionID string) ([]byte, bool, error)

	SetSignal(ctx context.Context, executionID, name string, payload []byte) error
	PendingSignal(ctx context.Context, executionID, name string) ([]byte, bool, error)
	ClearSignal(ctx context.Context, executionID, name string) error

	SetHeartbeat(ctx context.Context, executionID string, at time.Time, details []byte) error
	LastHeartbeat(ctx context.Context, executionID string) (time.Time, bool, error)

	Close(ctx context.Context) error
}
