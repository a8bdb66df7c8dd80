// Package journal provides JournalStore implementations for the local substrate.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/corvand/continuo/pkg/substrate"
)

type executionJournal struct {
	records         []*substrate.Record
	signals         map[string][]byte
	continuation    []byte
	hasContinuation bool
	heartbeatAt     time.Time
	hasHeartbeat    bool
}

// MemoryStore keeps journals in process memory. It is intended for tests and
// single-process development; it provides replay within a process lifetime but
// no crash durability.
type MemoryStore struct {
	mu         sync.RWMutex
	executions map[string]*executionJournal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		executions: make(map[string]*executionJournal),
	}
}

func (s *MemoryStore) journal(executionID string) *executionJournal {
	j, ok := s.executions[executionID]
	if !ok {
		j = &executionJournal{signals: make(map[string][]byte)}
		s.executions[executionID] = j
	}

	return j
}

func (s *MemoryStore) Append(_ context.Context, executionID string, record *substrate.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.journal(executionID)
	j.records = append(j.records, record)

	return nil
}

func (s *MemoryStore) Records(_ context.Context, executionID string) ([]*substrate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.executions[executionID]
	if !ok {
		return nil, substrate.ErrJournalNotFound
	}

	records := make([]*substrate.Record, len(j.records))
	copy(records, j.records)

	return records, nil
}

func (s *MemoryStore) Reset(_ context.Context, executionID string, continuation []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.journal(executionID)
	j.records = nil
	j.continuation = continuation
	j.hasContinuation = true

	return nil
}

func (s *MemoryStore) Continuation(_ context.Context, executionID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.executions[executionID]
	if !ok {
		return nil, false, nil
	}

	return j.continuation, j.hasContinuation, nil
}

func (s *MemoryStore) SetSignal(_ context.Context, executionID, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.journal(executionID).signals[name] = payload

	return nil
}

func (s *MemoryStore) PendingSignal(_ context.Context, executionID, name string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.executions[executionID]
	if !ok {
		return nil, false, nil
	}

	payload, pending := j.signals[name]

	return payload, pending, nil
}

func (s *MemoryStore) ClearSignal(_ context.Context, executionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.executions[executionID]; ok {
		delete(j.signals, name)
	}

	return nil
}

func (s *MemoryStore) SetHeartbeat(_ context.Context, executionID string, at time.Time, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.journal(executionID)
	j.heartbeatAt = at
	j.hasHeartbeat = true

	return nil
}

func (s *MemoryStore) LastHeartbeat(_ context.Context, executionID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.executions[executionID]
	if !ok || !j.hasHeartbeat {
		return time.Time{}, false, nil
	}

	return j.heartbeatAt, true, nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
