package careboard

import (
	"context"

	"github.com/careboard-ai/careboard/llm"
)

var _ Agent = &MockAgent{}

// MockAgentOptions configure a scripted agent for tests.
type MockAgentOptions struct {
	Name        string
	Description string

	// Replies are returned in order across invocations; the last reply
	// repeats once the script is exhausted.
	Replies []string

	// Err, when set, is returned by every invocation.
	Err error

	// OnInvoke, when set, observes the history passed to each invocation.
	OnInvoke func(history []*llm.Message)
}

// MockAgent is a scripted Agent used in tests.
type MockAgent struct {
	name        string
	description string
	replies     []string
	err         error
	onInvoke    func(history []*llm.Message)
	calls       int
}

func NewMockAgent(opts MockAgentOptions) *MockAgent {
	return &MockAgent{
		name:        opts.Name,
		description: opts.Description,
		replies:     opts.Replies,
		err:         opts.Err,
		onInvoke:    opts.OnInvoke,
	}
}

func (a *MockAgent) Name() string {
	return a.name
}

func (a *MockAgent) Description() string {
	return a.description
}

// Calls returns how many times the agent has been invoked.
func (a *MockAgent) Calls() int {
	return a.calls
}

func (a *MockAgent) Invoke(ctx context.Context, history []*llm.Message) (*llm.Message, error) {
	a.calls++
	if a.onInvoke != nil {
		a.onInvoke(history)
	}
	if a.err != nil {
		return nil, a.err
	}
	if len(a.replies) == 0 {
		return llm.NewAssistantMessage(a.name, "ok"), nil
	}
	index := a.calls - 1
	if index >= len(a.replies) {
		index = len(a.replies) - 1
	}
	return llm.NewAssistantMessage(a.name, a.replies[index]), nil
}
