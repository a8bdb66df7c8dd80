package models

// ToolDefinition describes a tool the model may request during a run.
type ToolDefinition struct {
	Name        string         `json:"name"        validate:"required"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// MemoryConfig bounds how much conversation history a run carries across a
// checkpoint-and-restart boundary.
type MemoryConfig struct {
	MaxMessages int `json:"max_messages" validate:"required,min=2"`
}

// AgentConfig is the resolved configuration for one agent, loaded once per
// fresh run through the agent config port.
type AgentConfig struct {
	ID            string           `json:"id"             validate:"required"`
	Name          string           `json:"name"`
	SystemPrompt  string           `json:"system_prompt"  validate:"required"`
	Model         string           `json:"model"          validate:"required"`
	Provider      string           `json:"provider"       validate:"required"`
	ConnectionID  string           `json:"connection_id"`
	Temperature   float64          `json:"temperature"`
	MaxTokens     int              `json:"max_tokens"`
	MaxIterations int              `json:"max_iterations" validate:"required,min=1"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	Memory        MemoryConfig     `json:"memory"`
}

// Validate checks an agent configuration loaded from the config port.
func (a *AgentConfig) Validate() error {
	return validate.Struct(a)
}
