package openai

import "net/http"

// Option configures the provider.
type Option func(*Provider)

// WithAPIKey sets the API key used for authentication.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithEndpoint sets the chat completions endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = endpoint }
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithMaxTokens sets the default completion token cap.
func WithMaxTokens(maxTokens int) Option {
	return func(p *Provider) { p.maxTokens = maxTokens }
}

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(p *Provider) { p.client = client }
}

// WithSystemRole overrides the role used for the system prompt message.
// Newer models use "developer".
func WithSystemRole(role string) Option {
	return func(p *Provider) { p.systemRole = role }
}
