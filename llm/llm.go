// Package llm defines the chat-completion types shared by agents, the
// context analyzer, and the group-chat selection and termination rules.
package llm

import (
	"context"
)

// Completer is implemented by chat-completion providers.
type Completer interface {
	// Name of the provider, e.g. "openai".
	Name() string

	// Generate a response from the given messages.
	Generate(ctx context.Context, messages []*Message, opts ...Option) (*Response, error)
}

// Usage contains token usage information from a completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a completion returned by a provider.
type Response struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Message *Message `json:"message"`
	Usage   Usage    `json:"usage"`
}

// Text returns the text content of the response message.
func (r *Response) Text() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Content
}

// ToolCalls returns any tool calls requested by the response message.
func (r *Response) ToolCalls() []*ToolCall {
	if r.Message == nil {
		return nil
	}
	return r.Message.ToolCalls
}
