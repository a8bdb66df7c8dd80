package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/corvand/continuo/pkg/substrate"
)

type fileJournal struct {
	Records      []*substrate.Record `json:"records"`
	Signals      map[string][]byte   `json:"signals"`
	Continuation []byte              `json:"continuation,omitempty"`
	HasCont      bool                `json:"has_continuation"`
	HeartbeatAt  *time.Time          `json:"heartbeat_at,omitempty"`
}

// FileStore persists one JSON journal file per execution under a root
// directory. Writes go through a temp file rename so a crash never leaves a
// torn journal behind.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(cleanRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal root %s: %w", cleanRoot, err)
	}

	return &FileStore{root: cleanRoot}, nil
}

func (s *FileStore) path(executionID string) string {
	return filepath.Join(s.root, executionID+".json")
}

func (s *FileStore) load(executionID string) (*fileJournal, error) {
	data, err := os.ReadFile(s.path(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, substrate.ErrJournalNotFound
		}

		return nil, fmt.Errorf("failed to read journal for %s: %w", executionID, err)
	}

	var j fileJournal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to decode journal for %s: %w", executionID, err)
	}

	if j.Signals == nil {
		j.Signals = make(map[string][]byte)
	}

	return &j, nil
}

func (s *FileStore) loadOrNew(executionID string) (*fileJournal, error) {
	j, err := s.load(executionID)
	if err == nil {
		return j, nil
	}

	if err == substrate.ErrJournalNotFound {
		return &fileJournal{Signals: make(map[string][]byte)}, nil
	}

	return nil, err
}

func (s *FileStore) save(executionID string, j *fileJournal) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode journal for %s: %w", executionID, err)
	}

	tmp := s.path(executionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write journal for %s: %w", executionID, err)
	}

	if err := os.Rename(tmp, s.path(executionID)); err != nil {
		return fmt.Errorf("failed to commit journal for %s: %w", executionID, err)
	}

	return nil
}

func (s *FileStore) Append(_ context.Context, executionID string, record *substrate.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadOrNew(executionID)
	if err != nil {
		return err
	}

	j.Records = append(j.Records, record)

	return s.save(executionID, j)
}

func (s *FileStore) Records(_ context.Context, executionID string) ([]*substrate.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(executionID)
	if err != nil {
		return nil, err
	}

	return j.Records, nil
}

func (s *FileStore) Reset(_ context.Context, executionID string, continuation []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadOrNew(executionID)
	if err != nil {
		return err
	}

	j.Records = nil
	j.Continuation = continuation
	j.HasCont = true

	return s.save(executionID, j)
}

func (s *FileStore) Continuation(_ context.Context, executionID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(executionID)
	if err != nil {
		if err == substrate.ErrJournalNotFound {
			return nil, false, nil
		}

		return nil, false, err
	}

	return j.Continuation, j.HasCont, nil
}

func (s *FileStore) SetSignal(_ context.Context, executionID, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadOrNew(executionID)
	if err != nil {
		return err
	}

	j.Signals[name] = payload

	return s.save(executionID, j)
}

func (s *FileStore) PendingSignal(_ context.Context, executionID, name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(executionID)
	if err != nil {
		if err == substrate.ErrJournalNotFound {
			return nil, false, nil
		}

		return nil, false, err
	}

	payload, pending := j.Signals[name]

	return payload, pending, nil
}

func (s *FileStore) ClearSignal(_ context.Context, executionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(executionID)
	if err != nil {
		if err == substrate.ErrJournalNotFound {
			return nil
		}

		return err
	}

	delete(j.Signals, name)

	return s.save(executionID, j)
}

func (s *FileStore) SetHeartbeat(_ context.Context, executionID string, at time.Time, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.loadOrNew(executionID)
	if err != nil {
		return err
	}

	j.HeartbeatAt = &at

	return s.save(executionID, j)
}

func (s *FileStore) LastHeartbeat(_ context.Context, executionID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.load(executionID)
	if err != nil {
		if err == substrate.ErrJournalNotFound {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, err
	}

	if j.HeartbeatAt == nil {
		return time.Time{}, false, nil
	}

	return *j.HeartbeatAt, true, nil
}

func (s *FileStore) Close(_ context.Context) error {
	return nil
}
