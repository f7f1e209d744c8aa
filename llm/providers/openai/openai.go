// Package openai implements the llm.Completer interface against any
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/retry"
)

var (
	DefaultModel      = ModelGPT4o
	DefaultEndpoint   = "https://api.openai.com/v1/chat/completions"
	DefaultMaxTokens  = 4096
	DefaultSystemRole = "system"
	DefaultClient     = &http.Client{Timeout: 300 * time.Second}
)

var _ llm.Completer = &Provider{}

type Provider struct {
	client     *http.Client
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	systemRole string
}

func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		endpoint:   DefaultEndpoint,
		client:     DefaultClient,
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
		systemRole: DefaultSystemRole,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.Option) (*llm.Response, error) {
	config := &llm.Config{}
	config.Apply(opts)

	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	request := Request{
		Messages: convertMessages(messages),
	}
	p.applyRequestConfig(&request, config)
	addSystemPrompt(&request, config.SystemPrompt, p.systemRole)

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	var result Response
	err = retry.WithRetry(ctx, func() error {
		req, err := p.createRequest(ctx, body)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("error making request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return NewError(resp.StatusCode, string(body))
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty response from completions api")
	}
	choice := result.Choices[0]

	message := &llm.Message{
		Role:    llm.Assistant,
		Content: choice.Message.Content,
	}
	for _, toolCall := range choice.Message.ToolCalls {
		message.ToolCalls = append(message.ToolCalls, &llm.ToolCall{
			ID:        toolCall.ID,
			Name:      toolCall.Function.Name,
			Arguments: toolCall.Function.Arguments,
		})
	}

	return &llm.Response{
		ID:      result.ID,
		Model:   result.Model,
		Message: message,
		Usage: llm.Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

func (p *Provider) applyRequestConfig(req *Request, config *llm.Config) {
	if model := config.Model; model != "" {
		req.Model = model
	} else {
		req.Model = p.model
	}

	var maxTokens int
	if ptr := config.MaxTokens; ptr != nil {
		maxTokens = *ptr
	} else {
		maxTokens = p.maxTokens
	}
	if maxTokens > 0 {
		if strings.HasPrefix(req.Model, "o") || strings.HasPrefix(req.Model, "gpt-5") {
			req.MaxCompletionTokens = &maxTokens
		} else {
			req.MaxTokens = &maxTokens
		}
	}

	for _, tool := range config.Tools {
		req.Tools = append(req.Tools, Tool{
			Type: "function",
			Function: ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	if format := config.ResponseFormat; format != nil {
		req.ResponseFormat = &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:        format.Name,
				Description: format.Description,
				Schema:      format.Schema,
				Strict:      true,
			},
		}
	}

	req.Temperature = config.Temperature
	req.Seed = config.Seed
}

func addSystemPrompt(request *Request, systemPrompt, systemRole string) {
	if systemPrompt == "" {
		return
	}
	request.Messages = append([]Message{{
		Role:    systemRole,
		Content: systemPrompt,
	}}, request.Messages...)
}

func (p *Provider) createRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func validateMessages(messages []*llm.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("no messages provided")
	}
	for i, message := range messages {
		if message.Content == "" && len(message.ToolCalls) == 0 {
			return fmt.Errorf("empty message detected (index %d)", i)
		}
	}
	return nil
}

func convertMessages(messages []*llm.Message) []Message {
	result := make([]Message, 0, len(messages))
	for _, msg := range messages {
		converted := Message{
			Role:       strings.ToLower(string(msg.Role)),
			Name:       sanitizeName(msg.Name),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, toolCall := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, ToolCall{
				ID:   toolCall.ID,
				Type: "function",
				Function: ToolCallFunction{
					Name:      toolCall.Name,
					Arguments: toolCall.Arguments,
				},
			})
		}
		result = append(result, converted)
	}
	return result
}

// sanitizeName maps agent names onto the characters the completions API
// accepts for the message name field.
func sanitizeName(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
