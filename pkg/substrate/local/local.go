// Package local provides the in-process reference implementation of the
// durable execution substrate, backed by an event-sourced journal.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/corvand/continuo/pkg/substrate"
)

const defaultSignalPollInterval = 50 * time.Millisecond

// Substrate runs orchestrations as in-process goroutines while journaling
// every suspension point, so a resumed run replays recorded outcomes instead
// of re-executing side effects.
type Substrate struct {
	journal      substrate.JournalStore
	logger       *slog.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	waiters map[string][]chan struct{}
}

func NewSubstrate(logger *slog.Logger, journal substrate.JournalStore) *Substrate {
	return &Substrate{
		journal:      journal,
		logger:       logger,
		pollInterval: defaultSignalPollInterval,
		waiters:      make(map[string][]chan struct{}),
	}
}

// Run drives fn under executionID, transparently restarting it on
// continue-as-new. The caller observes one logical execution.
func (s *Substrate) Run(ctx context.Context, executionID string, fn substrate.Orchestration) error {
	logger := s.logger.With("execution_id", executionID)

	for {
		sess, err := s.openSession(ctx, executionID)
		if err != nil {
			return fmt.Errorf("failed to open session for execution %s: %w", executionID, err)
		}

		err = fn(ctx, sess)

		var cont *substrate.ContinueAsNewError
		if errors.As(err, &cont) {
			if err := s.journal.Reset(ctx, executionID, cont.State); err != nil {
				return fmt.Errorf("failed to reset journal for continuation: %w", err)
			}

			logger.InfoContext(ctx, "Continuing execution as new logical run")

			continue
		}

		return err
	}
}

// Signal delivers a payload to a named channel of an execution. The pending
// value is durable and last-write-wins until consumed.
func (s *Substrate) Signal(ctx context.Context, executionID, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal signal payload: %w", err)
	}

	if err := s.journal.SetSignal(ctx, executionID, name, raw); err != nil {
		return fmt.Errorf("failed to persist signal %s: %w", name, err)
	}

	s.notify(executionID)

	return nil
}

// LastHeartbeat exposes the most recent liveness marker so a supervisor can
// detect and recover a stuck worker.
func (s *Substrate) LastHeartbeat(ctx context.Context, executionID string) (time.Time, bool, error) {
	return s.journal.LastHeartbeat(ctx, executionID)
}

func (s *Substrate) openSession(ctx context.Context, executionID string) (*session, error) {
	records, err := s.journal.Records(ctx, executionID)
	if err != nil && !errors.Is(err, substrate.ErrJournalNotFound) {
		return nil, err
	}

	bySequence := make(map[int]*substrate.Record, len(records))
	for _, record := range records {
		bySequence[record.Sequence] = record
	}

	continuation, hasContinuation, err := s.journal.Continuation(ctx, executionID)
	if err != nil && !errors.Is(err, substrate.ErrJournalNotFound) {
		return nil, err
	}

	return &session{
		substrate:       s,
		executionID:     executionID,
		records:         bySequence,
		continuation:    continuation,
		hasContinuation: hasContinuation,
	}, nil
}

func (s *Substrate) notify(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, waiter := range s.waiters[executionID] {
		select {
		case waiter <- struct{}{}:
		default:
		}
	}
}

func (s *Substrate) addWaiter(executionID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiter := make(chan struct{}, 1)
	s.waiters[executionID] = append(s.waiters[executionID], waiter)

	return waiter
}

func (s *Substrate) removeWaiter(executionID string, waiter chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.waiters[executionID]
	for i, w := range current {
		if w == waiter {
			s.waiters[executionID] = append(current[:i], current[i+1:]...)

			break
		}
	}
}

// session implements substrate.Session for one logical run. Orchestration
// code is single-threaded, so the sequence counter needs no locking.
type session struct {
	substrate       *Substrate
	executionID     string
	records         map[int]*substrate.Record
	continuation    []byte
	hasContinuation bool
	sequence        int
}

func (se *session) ExecutionID() string {
	return se.executionID
}

func (se *session) ContinuationState(v any) (bool, error) {
	if !se.hasContinuation {
		return false, nil
	}

	if err := json.Unmarshal(se.continuation, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal continuation state: %w", err)
	}

	return true, nil
}

func (se *session) ContinueAsNew(state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal continuation state: %w", err)
	}

	return &substrate.ContinueAsNewError{State: raw}
}

func (se *session) RecordHeartbeat(ctx context.Context, details any) {
	raw, err := json.Marshal(details)
	if err != nil {
		raw = nil
	}

	err = se.substrate.journal.SetHeartbeat(ctx, se.executionID, time.Now().UTC(), raw)
	if err != nil {
		se.substrate.logger.WarnContext(ctx, "Failed to record heartbeat",
			"execution_id", se.executionID, "error", err)
	}
}

func (se *session) ExecuteActivity(
	ctx context.Context,
	name string,
	opts substrate.ActivityOptions,
	fn substrate.Activity,
) (map[string]any, error) {
	sequence := se.next()

	if record, ok := se.records[sequence]; ok && record.Kind == substrate.RecordKindActivity {
		return replayActivity(record)
	}

	result, err := se.invoke(ctx, opts, fn)

	record := &substrate.Record{
		Sequence:   sequence,
		Kind:       substrate.RecordKindActivity,
		Name:       name,
		Success:    err == nil,
		RecordedAt: time.Now().UTC(),
	}

	if err != nil {
		record.Failure = err.Error()
	} else {
		payload, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal activity result for %s: %w", name, marshalErr)
		}

		record.Payload = payload
	}

	if appendErr := se.append(ctx, record); appendErr != nil {
		return nil, appendErr
	}

	return result, err
}

func (se *session) Sleep(ctx context.Context, d time.Duration) error {
	sequence := se.next()

	if record, ok := se.records[sequence]; ok && record.Kind == substrate.RecordKindTimer {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	return se.append(ctx, &substrate.Record{
		Sequence:   sequence,
		Kind:       substrate.RecordKindTimer,
		Name:       d.String(),
		Success:    true,
		RecordedAt: time.Now().UTC(),
	})
}

func (se *session) Signal(name string) substrate.SignalChannel {
	return &signalChannel{session: se, name: name}
}

func (se *session) next() int {
	se.sequence++

	return se.sequence
}

func (se *session) append(ctx context.Context, record *substrate.Record) error {
	if err := se.substrate.journal.Append(ctx, se.executionID, record); err != nil {
		return fmt.Errorf("failed to journal %s record: %w", record.Kind, err)
	}

	se.records[record.Sequence] = record

	return nil
}

func (se *session) invoke(ctx context.Context, opts substrate.ActivityOptions, fn substrate.Activity) (map[string]any, error) {
	policy := opts.RetryPolicy
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = policy.InitialInterval
	exponential.MaxInterval = policy.MaxInterval
	exponential.MaxElapsedTime = 0

	if policy.BackoffCoefficient > 0 {
		exponential.Multiplier = policy.BackoffCoefficient
	}

	var result map[string]any

	operation := func() error {
		attemptCtx := ctx

		if opts.Timeout > 0 {
			var cancel context.CancelFunc

			attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		var err error

		result, err = fn(attemptCtx)

		return err
	}

	err := backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(policy.MaxAttempts-1)), ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", substrate.ErrActivityExhausted, err)
	}

	return result, nil
}

func replayActivity(record *substrate.Record) (map[string]any, error) {
	if !record.Success {
		return nil, fmt.Errorf("%w: %s", substrate.ErrActivityExhausted, record.Failure)
	}

	var result map[string]any
	if len(record.Payload) > 0 {
		if err := json.Unmarshal(record.Payload, &result); err != nil {
			return nil, fmt.Errorf("failed to replay activity %s: %w", record.Name, err)
		}
	}

	return result, nil
}

// signalChannel implements substrate.SignalChannel over the journal store,
// with an in-process notification fast path.
type signalChannel struct {
	session *session
	name    string
}

func (c *signalChannel) Name() string {
	return c.name
}

func (c *signalChannel) Send(ctx context.Context, payload any) error {
	return c.session.substrate.Signal(ctx, c.session.executionID, c.name, payload)
}

func (c *signalChannel) Poll(ctx context.Context) (bool, error) {
	_, pending, err := c.session.substrate.journal.PendingSignal(ctx, c.session.executionID, c.name)
	if err != nil && !errors.Is(err, substrate.ErrJournalNotFound) {
		return false, err
	}

	return pending, nil
}

func (c *signalChannel) Receive(ctx context.Context, timeout time.Duration) (substrate.SignalResult, error) {
	sequence := c.session.next()

	if record, ok := c.session.records[sequence]; ok && record.Kind == substrate.RecordKindSignal {
		var result substrate.SignalResult
		if err := json.Unmarshal(record.Payload, &result); err != nil {
			return substrate.SignalResult{}, fmt.Errorf("failed to replay signal %s: %w", c.name, err)
		}

		return result, nil
	}

	result, err := c.await(ctx, timeout)
	if err != nil {
		return substrate.SignalResult{}, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return substrate.SignalResult{}, fmt.Errorf("failed to marshal signal outcome: %w", err)
	}

	err = c.session.append(ctx, &substrate.Record{
		Sequence:   sequence,
		Kind:       substrate.RecordKindSignal,
		Name:       c.name,
		Success:    true,
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return substrate.SignalResult{}, err
	}

	return result, nil
}

func (c *signalChannel) await(ctx context.Context, timeout time.Duration) (substrate.SignalResult, error) {
	sub := c.session.substrate

	waiter := sub.addWaiter(c.session.executionID)
	defer sub.removeWaiter(c.session.executionID, waiter)

	var deadline <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		deadline = timer.C
	}

	ticker := time.NewTicker(sub.pollInterval)
	defer ticker.Stop()

	for {
		payload, pending, err := sub.journal.PendingSignal(ctx, c.session.executionID, c.name)
		if err != nil && !errors.Is(err, substrate.ErrJournalNotFound) {
			return substrate.SignalResult{}, err
		}

		if pending {
			if err := sub.journal.ClearSignal(ctx, c.session.executionID, c.name); err != nil {
				return substrate.SignalResult{}, err
			}

			return substrate.SignalResult{Received: true, Payload: payload}, nil
		}

		select {
		case <-ctx.Done():
			return substrate.SignalResult{}, ctx.Err()
		case <-deadline:
			return substrate.SignalResult{TimedOut: true}, nil
		case <-waiter:
		case <-ticker.C:
		}
	}
}
