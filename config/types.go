// Package config defines the static agent roster configuration and the
// runtime settings read from the environment.
package config

import "fmt"

// Config is the top-level agents configuration document.
type Config struct {
	Agents []*Agent `yaml:"agents" json:"agents"`
}

// Agent describes one conversation participant.
type Agent struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	Instructions string   `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Facilitator  bool     `yaml:"facilitator,omitempty" json:"facilitator,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Tools        []*Tool  `yaml:"tools,omitempty" json:"tools,omitempty"`

	// External marks an agent hosted outside this process; Endpoint is its
	// opaque HTTP address.
	External bool   `yaml:"external,omitempty" json:"external,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// AdditionalInstructionFiles are appended to Instructions at load time,
	// resolved relative to the config file.
	AdditionalInstructionFiles []string `yaml:"additional_instruction_files,omitempty" json:"additional_instruction_files,omitempty"`
}

// Tool references a tool by registry name with optional parameters.
type Tool struct {
	Name       string         `yaml:"name" json:"name"`
	Type       string         `yaml:"type,omitempty" json:"type,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Validate checks roster-level invariants: unique agent names, exactly one
// facilitator, endpoints on external agents.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("no agents configured")
	}
	seen := map[string]bool{}
	facilitators := 0
	for _, agent := range c.Agents {
		if agent.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if seen[agent.Name] {
			return fmt.Errorf("duplicate agent name %q", agent.Name)
		}
		seen[agent.Name] = true
		if agent.Facilitator {
			facilitators++
		}
		if agent.External && agent.Endpoint == "" {
			return fmt.Errorf("external agent %q has no endpoint", agent.Name)
		}
	}
	if facilitators != 1 {
		return fmt.Errorf("expected exactly one facilitator, found %d", facilitators)
	}
	return nil
}

// Facilitator returns the configured facilitator agent.
func (c *Config) Facilitator() *Agent {
	for _, agent := range c.Agents {
		if agent.Facilitator {
			return agent
		}
	}
	return nil
}
