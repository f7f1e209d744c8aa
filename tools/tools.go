// Package tools provides the dynamic registry agents resolve their tool
// capabilities from. Tool implementations are opaque to the orchestrator.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/careboard-ai/careboard/llm"
)

// Tool is an opaque capability an agent can invoke during its turn.
type Tool interface {
	// Name of the tool, unique within the registry.
	Name() string

	// Description shown to the model.
	Description() string

	// Schema describes the tool's input as a JSON schema object.
	Schema() map[string]any

	// Call invokes the tool with the raw JSON arguments produced by the
	// model and returns the result text.
	Call(ctx context.Context, arguments string) (string, error)
}

// Definition converts a Tool into the form providers advertise to models.
func Definition(tool Tool) *llm.ToolDefinition {
	return &llm.ToolDefinition{
		Name:        tool.Name(),
		Description: tool.Description(),
		Parameters:  tool.Schema(),
	}
}

// Factory builds a tool instance from its configured parameters.
type Factory func(params map[string]any) (Tool, error)

// Registry resolves tools by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a tool factory under the given name, replacing any prior
// registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Resolve builds the named tool with the given parameters.
func (r *Registry) Resolve(name string, params map[string]any) (Tool, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	tool, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("resolve tool %q: %w", name, err)
	}
	return tool, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
