package llm

// ResponseFormat requests structured model output conforming to a JSON
// schema.
type ResponseFormat struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
}

// ToolDefinition describes a tool in a form providers can advertise to the
// model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
