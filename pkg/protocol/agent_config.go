package protocol

import (
	"context"

	"github.com/corvand/continuo/pkg/models"
)

// AgentConfigStore resolves agent configuration at run start.
type AgentConfigStore interface {
	Get(ctx context.Context, agentID, userID string) (*models.AgentConfig, error)
}
