package careboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/slogger"
)

// ExternalAgentOptions configure an agent hosted outside this process.
type ExternalAgentOptions struct {
	Name        string
	Description string
	Endpoint    string
	Client      *http.Client
	Logger      slogger.Logger
}

// ExternalAgent delegates the turn to an HTTP endpoint. The endpoint
// receives the working history and returns the agent's reply text.
type ExternalAgent struct {
	name        string
	description string
	endpoint    string
	client      *http.Client
	logger      slogger.Logger
}

type externalRequest struct {
	Agent    string         `json:"agent"`
	Messages []*llm.Message `json:"messages"`
}

type externalResponse struct {
	Content string `json:"content"`
}

// NewExternalAgent validates the options and creates an ExternalAgent.
func NewExternalAgent(opts ExternalAgentOptions) (*ExternalAgent, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("agent name required")
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("external agent %q requires an endpoint", opts.Name)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	return &ExternalAgent{
		name:        opts.Name,
		description: opts.Description,
		endpoint:    opts.Endpoint,
		client:      client,
		logger:      logger.With("agent", opts.Name),
	}, nil
}

func (a *ExternalAgent) Name() string        { return a.name }
func (a *ExternalAgent) Description() string { return a.description }

// Invoke posts the history to the external endpoint and wraps the returned
// content as this agent's reply.
func (a *ExternalAgent) Invoke(ctx context.Context, history []*llm.Message) (*llm.Message, error) {
	body, err := json.Marshal(externalRequest{Agent: a.name, Messages: history})
	if err != nil {
		return nil, fmt.Errorf("external agent %q: marshal request: %w", a.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("external agent %q: create request: %w", a.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external agent %q: %w", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("external agent %q: status %d: %s", a.name, resp.StatusCode, payload)
	}
	var result externalResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("external agent %q: decode response: %w", a.name, err)
	}
	return llm.NewAssistantMessage(a.name, result.Content), nil
}
