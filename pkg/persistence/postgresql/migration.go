package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT,
				agent_id TEXT,
				status TEXT NOT NULL,
				inputs JSONB,
				outputs JSONB,
				error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS conversation_messages (
				id TEXT PRIMARY KEY,
				execution_id TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				tool_calls JSONB,
				tool_name TEXT,
				tool_call_id TEXT,
				seq BIGSERIAL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_conversation_messages_execution
				ON conversation_messages (execution_id, seq);

			CREATE TABLE IF NOT EXISTS agent_checkpoints (
				execution_id TEXT PRIMARY KEY,
				payload JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
