package careboard

import (
	"context"
	"fmt"

	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/slogger"
	"github.com/careboard-ai/careboard/tools"
)

// DefaultToolIterationLimit bounds the tool-call loop inside one agent
// invocation.
const DefaultToolIterationLimit = 8

// ChatAgentOptions configure an LLM-backed agent.
type ChatAgentOptions struct {
	Name         string
	Description  string
	Instructions string
	Completer    llm.Completer

	// Temperature defaults to 0 when nil.
	Temperature *float64

	Tools              []tools.Tool
	ToolIterationLimit int
	Logger             slogger.Logger
}

// ChatAgent is an LLM-backed conversation participant. Tool calls are
// executed inside Invoke; only the final text reply enters the shared
// history.
type ChatAgent struct {
	name               string
	description        string
	instructions       string
	completer          llm.Completer
	temperature        float64
	seed               int
	tools              map[string]tools.Tool
	toolDefs           []*llm.ToolDefinition
	toolIterationLimit int
	logger             slogger.Logger
}

// NewChatAgent validates the options and creates a ChatAgent.
func NewChatAgent(opts ChatAgentOptions) (*ChatAgent, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("agent name required")
	}
	if opts.Completer == nil {
		return nil, fmt.Errorf("agent %q requires a completer", opts.Name)
	}
	temperature := 0.0
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	limit := opts.ToolIterationLimit
	if limit <= 0 {
		limit = DefaultToolIterationLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	agent := &ChatAgent{
		name:               opts.Name,
		description:        opts.Description,
		instructions:       opts.Instructions,
		completer:          opts.Completer,
		temperature:        temperature,
		seed:               42,
		tools:              map[string]tools.Tool{},
		toolIterationLimit: limit,
		logger:             logger.With("agent", opts.Name),
	}
	for _, tool := range opts.Tools {
		if _, ok := agent.tools[tool.Name()]; ok {
			return nil, fmt.Errorf("agent %q has duplicate tool %q", opts.Name, tool.Name())
		}
		agent.tools[tool.Name()] = tool
		agent.toolDefs = append(agent.toolDefs, tools.Definition(tool))
	}
	return agent, nil
}

func (a *ChatAgent) Name() string        { return a.name }
func (a *ChatAgent) Description() string { return a.description }

// Invoke generates the agent's reply, running any requested tool calls to
// completion first. The working message stack used for tool exchanges is
// private to this call.
func (a *ChatAgent) Invoke(ctx context.Context, history []*llm.Message) (*llm.Message, error) {
	messages := make([]*llm.Message, len(history))
	copy(messages, history)

	for iteration := 0; iteration < a.toolIterationLimit; iteration++ {
		opts := []llm.Option{
			llm.WithSystemPrompt(a.instructions),
			llm.WithTemperature(a.temperature),
			llm.WithSeed(a.seed),
		}
		if len(a.toolDefs) > 0 {
			opts = append(opts, llm.WithTools(a.toolDefs...))
		}
		response, err := a.completer.Generate(ctx, messages, opts...)
		if err != nil {
			return nil, fmt.Errorf("agent %q generation failed: %w", a.name, err)
		}

		toolCalls := response.ToolCalls()
		if len(toolCalls) == 0 {
			return llm.NewAssistantMessage(a.name, response.Text()), nil
		}

		messages = append(messages, response.Message)
		for _, call := range toolCalls {
			result := a.callTool(ctx, call)
			messages = append(messages, llm.NewToolResultMessage(call.ID, result))
		}
	}
	return nil, fmt.Errorf("agent %q exceeded tool iteration limit (%d)", a.name, a.toolIterationLimit)
}

func (a *ChatAgent) callTool(ctx context.Context, call *llm.ToolCall) string {
	tool, ok := a.tools[call.Name]
	if !ok {
		a.logger.Warn("model requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}
	result, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		a.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("error: %v", err)
	}
	return result
}
