package careboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careboard-ai/careboard/config"
	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/tools"
	"github.com/stretchr/testify/require"
)

func fakeFactory() func() llm.Completer {
	return func() llm.Completer {
		return &fakeCompleter{responses: []*llm.Response{textResponse("ok")}}
	}
}

func TestBuildAgentsRoster(t *testing.T) {
	cfg := &config.Config{Agents: []*config.Agent{
		{Name: "Orchestrator", Facilitator: true, Description: "Coordinates.", Instructions: "Specialists:\n{{aiAgents}}"},
		{Name: "Radiology", Description: "Reads imaging."},
	}}

	agents, err := BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory()})
	require.NoError(t, err)
	require.Len(t, agents, 2)
	require.Equal(t, "Orchestrator", agents[0].Name())
	require.Equal(t, "Radiology", agents[1].Name())
}

func TestBuildAgentsExpandsRosterPlaceholder(t *testing.T) {
	cfg := &config.Config{Agents: []*config.Agent{
		{Name: "Orchestrator", Facilitator: true, Description: "Coordinates.", Instructions: "Team:\n{{aiAgents}}"},
		{Name: "Radiology", Description: "Reads imaging."},
	}}

	agents, err := BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory()})
	require.NoError(t, err)

	facilitator, ok := agents[0].(*ChatAgent)
	require.True(t, ok)
	require.Contains(t, facilitator.instructions, "- Radiology: Reads imaging.")
	require.NotContains(t, facilitator.instructions, "{{aiAgents}}")
}

func TestBuildAgentsResolvesTools(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register("cxr_report_gen", func(params map[string]any) (tools.Tool, error) {
		return &echoTool{name: "cxr_report_gen"}, nil
	})

	cfg := &config.Config{Agents: []*config.Agent{
		{Name: "Orchestrator", Facilitator: true},
		{Name: "Radiology", Tools: []*config.Tool{{Name: "cxr_report_gen"}}},
	}}

	agents, err := BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory(), Tools: registry})
	require.NoError(t, err)
	radiology, ok := agents[1].(*ChatAgent)
	require.True(t, ok)
	require.Contains(t, radiology.tools, "cxr_report_gen")
}

func TestBuildAgentsRejectsToolsWithoutRegistry(t *testing.T) {
	cfg := &config.Config{Agents: []*config.Agent{
		{Name: "Orchestrator", Facilitator: true},
		{Name: "Radiology", Tools: []*config.Tool{{Name: "cxr_report_gen"}}},
	}}

	_, err := BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no registry")
}

func TestBuildAgentsRejectsUnknownTool(t *testing.T) {
	cfg := &config.Config{Agents: []*config.Agent{
		{Name: "Orchestrator", Facilitator: true},
		{Name: "Radiology", Tools: []*config.Tool{{Name: "mystery"}}},
	}}

	_, err := BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory(), Tools: tools.NewRegistry()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown tool")
}

func TestBuildAgentsValidatesConfig(t *testing.T) {
	_, err := BuildAgents(FactoryOptions{NewCompleter: fakeFactory()})
	require.Error(t, err)

	cfg := &config.Config{Agents: []*config.Agent{{Name: "Solo"}}}
	_, err = BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory()})
	require.Error(t, err)
}

func TestBuildAgentsExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":"External findings ready."}`))
	}))
	defer server.Close()

	cfg := &config.Config{Agents: []*config.Agent{
		{Name: "Orchestrator", Facilitator: true},
		{Name: "Pathology", External: true, Endpoint: server.URL},
	}}

	agents, err := BuildAgents(FactoryOptions{Config: cfg, NewCompleter: fakeFactory()})
	require.NoError(t, err)

	reply, err := agents[1].Invoke(context.Background(), []*llm.Message{llm.NewUserMessage("go")})
	require.NoError(t, err)
	require.Equal(t, "Pathology", reply.Name)
	require.Equal(t, "External findings ready.", reply.Content)
}
