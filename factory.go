package careboard

import (
	"fmt"
	"strings"

	"github.com/careboard-ai/careboard/config"
	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/slogger"
	"github.com/careboard-ai/careboard/tools"
)

// FactoryOptions carry everything needed to build a roster of agents from
// static configuration.
type FactoryOptions struct {
	// Config is the validated agents configuration.
	Config *config.Config

	// NewCompleter returns a fresh chat-completion handle. Each LLM agent
	// gets its own.
	NewCompleter func() llm.Completer

	// Tools resolves tool capabilities by name.
	Tools *tools.Registry

	Logger slogger.Logger
}

// BuildAgents produces the agent roster described by the config. The
// facilitator's instructions get the {{aiAgents}} placeholder replaced with
// the roster list.
func BuildAgents(opts FactoryOptions) ([]Agent, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.NewCompleter == nil {
		return nil, fmt.Errorf("completer factory required")
	}

	roster := make([]Agent, 0, len(opts.Config.Agents))
	for _, agentConfig := range opts.Config.Agents {
		agent, err := buildAgent(agentConfig, opts)
		if err != nil {
			return nil, err
		}
		roster = append(roster, agent)
	}
	return roster, nil
}

func buildAgent(agentConfig *config.Agent, opts FactoryOptions) (Agent, error) {
	if agentConfig.External {
		return NewExternalAgent(ExternalAgentOptions{
			Name:        agentConfig.Name,
			Description: agentConfig.Description,
			Endpoint:    agentConfig.Endpoint,
			Logger:      opts.Logger,
		})
	}

	var resolved []tools.Tool
	for _, toolConfig := range agentConfig.Tools {
		if opts.Tools == nil {
			return nil, fmt.Errorf("agent %q references tool %q but no registry is configured",
				agentConfig.Name, toolConfig.Name)
		}
		tool, err := opts.Tools.Resolve(toolConfig.Name, toolConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", agentConfig.Name, err)
		}
		resolved = append(resolved, tool)
	}

	instructions := agentConfig.Instructions
	if agentConfig.Facilitator {
		instructions = strings.ReplaceAll(instructions, "{{aiAgents}}", rosterList(opts.Config.Agents))
	}

	return NewChatAgent(ChatAgentOptions{
		Name:         agentConfig.Name,
		Description:  agentConfig.Description,
		Instructions: instructions,
		Completer:    opts.NewCompleter(),
		Temperature:  agentConfig.Temperature,
		Tools:        resolved,
		Logger:       opts.Logger,
	})
}

func rosterList(agents []*config.Agent) string {
	lines := make([]string, 0, len(agents))
	for _, agent := range agents {
		lines = append(lines, fmt.Sprintf("- %s: %s", agent.Name, agent.Description))
	}
	return strings.Join(lines, "\n\t\t")
}
