package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// ConversationRepository appends messages to one JSON file per execution.
// Saves are idempotent by message id.
type ConversationRepository struct {
	root string
	mu   sync.Mutex
}

func NewConversationRepository(root string) *ConversationRepository {
	return &ConversationRepository{root: filepath.Join(root, "conversations")}
}

func (r *ConversationRepository) path(executionID string) string {
	return filepath.Join(r.root, executionID+".json")
}

func (r *ConversationRepository) load(executionID string) ([]models.ConversationMessage, error) {
	data, err := os.ReadFile(r.path(executionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, &persistence.ExecutionError{Op: "load conversation", ExecutionID: executionID, Err: err}
	}

	var messages []models.ConversationMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, &persistence.ExecutionError{Op: "decode conversation", ExecutionID: executionID, Err: err}
	}

	return messages, nil
}

func (r *ConversationRepository) SaveMessages(
	_ context.Context,
	executionID string,
	messages []models.ConversationMessage,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.load(executionID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(existing))
	for _, message := range existing {
		seen[message.ID] = true
	}

	for _, message := range messages {
		if seen[message.ID] {
			continue
		}

		existing = append(existing, message)
		seen[message.ID] = true
	}

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return &persistence.ExecutionError{Op: "encode conversation", ExecutionID: executionID, Err: err}
	}

	return writeJSON(r.path(executionID), data)
}

func (r *ConversationRepository) ListByExecution(
	_ context.Context,
	executionID string,
) ([]models.ConversationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(executionID)
}
