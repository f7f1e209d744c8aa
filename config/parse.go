package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// ParseFile loads a Config from a file. The file extension is used to
// determine the configuration format (JSON or YAML). Additional instruction
// files are resolved relative to the config file and appended to the
// owning agent's instructions.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config *Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		config, err = ParseJSON(data)
	case ".yml", ".yaml":
		config, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := loadAdditionalInstructions(config, filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agents config %q: %w", path, err)
	}
	return config, nil
}

// ParseYAML loads a Config from YAML.
func ParseYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return nil, err
	}
	return &config, nil
}

// ParseJSON loads a Config from JSON.
func ParseJSON(data []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadAdditionalInstructions(config *Config, baseDir string) error {
	for _, agent := range config.Agents {
		for _, file := range agent.AdditionalInstructionFiles {
			path := file
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("additional instructions for %q: %w", agent.Name, err)
			}
			agent.Instructions = strings.TrimRight(agent.Instructions, "\n") + "\n\n" + string(data)
		}
	}
	return nil
}
