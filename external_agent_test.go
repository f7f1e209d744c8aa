package careboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careboard-ai/careboard/llm"
	"github.com/stretchr/testify/require"
)

func TestExternalAgentInvoke(t *testing.T) {
	var received externalRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(externalResponse{Content: "Slides reviewed."})
	}))
	defer server.Close()

	agent, err := NewExternalAgent(ExternalAgentOptions{
		Name:     "Pathology",
		Endpoint: server.URL,
	})
	require.NoError(t, err)

	history := []*llm.Message{llm.NewUserMessage("review the slides")}
	reply, err := agent.Invoke(context.Background(), history)
	require.NoError(t, err)
	require.Equal(t, "Pathology", reply.Name)
	require.Equal(t, "Slides reviewed.", reply.Content)
	require.Equal(t, "Pathology", received.Agent)
	require.Len(t, received.Messages, 1)
}

func TestExternalAgentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	agent, err := NewExternalAgent(ExternalAgentOptions{Name: "Pathology", Endpoint: server.URL})
	require.NoError(t, err)

	_, err = agent.Invoke(context.Background(), []*llm.Message{llm.NewUserMessage("go")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}

func TestNewExternalAgentValidation(t *testing.T) {
	_, err := NewExternalAgent(ExternalAgentOptions{Endpoint: "http://localhost:9"})
	require.Error(t, err)

	_, err = NewExternalAgent(ExternalAgentOptions{Name: "Pathology"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint")
}
