package llm

// Config contains the complete set of generation options.
type Config struct {
	Model          string
	SystemPrompt   string
	MaxTokens      *int
	Temperature    *float64
	Seed           *int
	Tools          []*ToolDefinition
	ResponseFormat *ResponseFormat
}

// Apply applies the given options to the config.
func (c *Config) Apply(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Option is a generation option.
type Option func(*Config)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithSystemPrompt sets the system prompt for the completion.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) { c.SystemPrompt = prompt }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Config) { c.MaxTokens = &maxTokens }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(c *Config) { c.Temperature = &temperature }
}

// WithSeed requests deterministic sampling where the provider supports it.
func WithSeed(seed int) Option {
	return func(c *Config) { c.Seed = &seed }
}

// WithTools advertises tools the model may call.
func WithTools(tools ...*ToolDefinition) Option {
	return func(c *Config) { c.Tools = tools }
}

// WithResponseFormat requests structured output matching a JSON schema.
func WithResponseFormat(format *ResponseFormat) Option {
	return func(c *Config) { c.ResponseFormat = format }
}
