// Package agentconfig provides a directory-backed implementation of the agent
// configuration port: one JSON file per agent.
package agentconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/protocol"
)

var ErrAgentNotFound = errors.New("agent not found")

// FileStore resolves agent configurations from {root}/{agentID}.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Get(ctx context.Context, agentID, userID string) (*models.AgentConfig, error) {
	path := filepath.Join(s.root, agentID+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
		}

		return nil, fmt.Errorf("failed to read agent config %s: %w", agentID, err)
	}

	var config models.AgentConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode agent config %s: %w", agentID, err)
	}

	if config.ID == "" {
		config.ID = agentID
	}

	return &config, nil
}

var _ protocol.AgentConfigStore = (*FileStore)(nil)
