package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/corvand/continuo/pkg/models"
	"github.com/corvand/continuo/pkg/persistence"
)

// ConversationRepository is the PostgreSQL conversation message repository.
// Message ids are primary keys, so saving the same message twice is a no-op,
// which is what makes incremental persistence idempotent.
type ConversationRepository struct {
	db *sql.DB
}

func (r *ConversationRepository) SaveMessages(
	ctx context.Context,
	executionID string,
	messages []models.ConversationMessage,
) error {
	if len(messages) == 0 {
		return nil
	}

	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &persistence.ExecutionError{Op: "SaveMessages", ExecutionID: executionID, Err: err}
	}

	for _, message := range messages {
		var toolCalls []byte

		if len(message.ToolCalls) > 0 {
			toolCalls, err = json.Marshal(message.ToolCalls)
			if err != nil {
				_ = transaction.Rollback()

				return &persistence.ExecutionError{Op: "SaveMessages", ExecutionID: executionID, Err: err}
			}
		}

		_, err = transaction.ExecContext(ctx, `
			INSERT INTO conversation_messages
				(id, execution_id, role, content, tool_calls, tool_name, tool_call_id, created_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
			ON CONFLICT (id) DO NOTHING
		`, message.ID, executionID, message.Role, message.Content,
			toolCalls, message.ToolName, message.ToolCallID, message.Timestamp)
		if err != nil {
			_ = transaction.Rollback()

			return &persistence.ExecutionError{Op: "SaveMessages", ExecutionID: executionID, Err: err}
		}
	}

	if err := transaction.Commit(); err != nil {
		return &persistence.ExecutionError{Op: "SaveMessages", ExecutionID: executionID, Err: err}
	}

	return nil
}

func (r *ConversationRepository) ListByExecution(
	ctx context.Context,
	executionID string,
) ([]models.ConversationMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role, content, tool_calls, tool_name, tool_call_id, created_at
		FROM conversation_messages
		WHERE execution_id = $1
		ORDER BY seq
	`, executionID)
	if err != nil {
		return nil, &persistence.ExecutionError{Op: "ListByExecution", ExecutionID: executionID, Err: err}
	}
	defer rows.Close()

	var messages []models.ConversationMessage

	for rows.Next() {
		var (
			message              models.ConversationMessage
			toolCalls            []byte
			toolName, toolCallID sql.NullString
		)

		err := rows.Scan(
			&message.ID, &message.Role, &message.Content,
			&toolCalls, &toolName, &toolCallID, &message.Timestamp,
		)
		if err != nil {
			return nil, &persistence.ExecutionError{Op: "ListByExecution", ExecutionID: executionID, Err: err}
		}

		message.ToolName = toolName.String
		message.ToolCallID = toolCallID.String

		if len(toolCalls) > 0 {
			if err := json.Unmarshal(toolCalls, &message.ToolCalls); err != nil {
				return nil, &persistence.ExecutionError{Op: "ListByExecution", ExecutionID: executionID, Err: err}
			}
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.ExecutionError{Op: "ListByExecution", ExecutionID: executionID, Err: err}
	}

	return messages, nil
}
