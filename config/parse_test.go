package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validYAML = `agents:
  - name: Orchestrator
    facilitator: true
    description: Coordinates the discussion.
    instructions: You coordinate specialists.
  - name: Radiology
    description: Reads imaging.
    temperature: 0
    tools:
      - name: cxr_report_gen
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileYAML(t *testing.T) {
	path := writeConfig(t, "agents.yaml", validYAML)

	cfg, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 2)
	require.Equal(t, "Orchestrator", cfg.Facilitator().Name)
	require.NotNil(t, cfg.Agents[1].Temperature)
	require.Zero(t, *cfg.Agents[1].Temperature)
	require.Equal(t, "cxr_report_gen", cfg.Agents[1].Tools[0].Name)
}

func TestParseFileJSON(t *testing.T) {
	path := writeConfig(t, "agents.json", `{
	  "agents": [
	    {"name": "Orchestrator", "facilitator": true},
	    {"name": "Radiology"}
	  ]
	}`)

	cfg, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 2)
}

func TestParseFileRejectsUnknownExtension(t *testing.T) {
	path := writeConfig(t, "agents.toml", "agents = []")
	_, err := ParseFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported file extension")
}

func TestParseYAMLStrictRejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte(`agents:
  - name: Orchestrator
    facilitator: true
    role: boss
`))
	require.Error(t, err)
}

func TestParseFileLoadsAdditionalInstructions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.md"), []byte("Always cite findings."), 0o644))
	path := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`agents:
  - name: Orchestrator
    facilitator: true
    instructions: Coordinate.
    additional_instruction_files:
      - extra.md
`), 0o644))

	cfg, err := ParseFile(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Agents[0].Instructions, "Coordinate.")
	require.Contains(t, cfg.Agents[0].Instructions, "Always cite findings.")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:    "no agents",
			config:  &Config{},
			wantErr: "no agents",
		},
		{
			name: "duplicate names",
			config: &Config{Agents: []*Agent{
				{Name: "Orchestrator", Facilitator: true},
				{Name: "Orchestrator"},
			}},
			wantErr: "duplicate agent name",
		},
		{
			name: "no facilitator",
			config: &Config{Agents: []*Agent{
				{Name: "Orchestrator"},
			}},
			wantErr: "exactly one facilitator",
		},
		{
			name: "two facilitators",
			config: &Config{Agents: []*Agent{
				{Name: "A", Facilitator: true},
				{Name: "B", Facilitator: true},
			}},
			wantErr: "exactly one facilitator",
		},
		{
			name: "external without endpoint",
			config: &Config{Agents: []*Agent{
				{Name: "A", Facilitator: true},
				{Name: "B", External: true},
			}},
			wantErr: "no endpoint",
		},
		{
			name: "valid",
			config: &Config{Agents: []*Agent{
				{Name: "A", Facilitator: true},
				{Name: "B", External: true, Endpoint: "http://localhost:9000"},
			}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
