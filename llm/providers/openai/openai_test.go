package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careboard-ai/careboard/llm"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	return `{
	  "id": "chatcmpl-1",
	  "model": "gpt-4o",
	  "choices": [{"index": 0, "message": {"role": "assistant", "content": ` + jsonString(content) + `}, "finish_reason": "stop"}],
	  "usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func TestGenerateRequestShape(t *testing.T) {
	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody("No acute findings.")))
	}))
	defer server.Close()

	provider := New(
		WithAPIKey("test-key"),
		WithEndpoint(server.URL),
		WithModel(ModelGPT4o),
	)

	temperature := 0.0
	response, err := provider.Generate(context.Background(),
		[]*llm.Message{
			llm.NewAssistantMessage("Dr. Chen", "prior note"),
			llm.NewUserMessage("read the film"),
		},
		llm.WithSystemPrompt("You read films."),
		llm.WithTemperature(temperature),
		llm.WithSeed(42),
		llm.WithMaxTokens(200),
	)
	require.NoError(t, err)
	require.Equal(t, "No acute findings.", response.Text())
	require.Equal(t, 12, response.Usage.InputTokens)
	require.Equal(t, 5, response.Usage.OutputTokens)

	require.Equal(t, "gpt-4o", captured.Model)
	require.NotNil(t, captured.MaxTokens)
	require.Equal(t, 200, *captured.MaxTokens)
	require.Nil(t, captured.MaxCompletionTokens)
	require.NotNil(t, captured.Temperature)
	require.Zero(t, *captured.Temperature)
	require.NotNil(t, captured.Seed)
	require.Equal(t, 42, *captured.Seed)

	// System prompt is prepended; the agent name is sanitized for the API.
	require.Len(t, captured.Messages, 3)
	require.Equal(t, "system", captured.Messages[0].Role)
	require.Equal(t, "You read films.", captured.Messages[0].Content)
	require.Equal(t, "Dr__Chen", captured.Messages[1].Name)
}

func TestGenerateUsesMaxCompletionTokensForNewModels(t *testing.T) {
	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody("ok")))
	}))
	defer server.Close()

	provider := New(WithAPIKey("k"), WithEndpoint(server.URL), WithModel(ModelGPT5Mini))
	_, err := provider.Generate(context.Background(),
		[]*llm.Message{llm.NewUserMessage("hi")},
		llm.WithMaxTokens(100),
	)
	require.NoError(t, err)
	require.Nil(t, captured.MaxTokens)
	require.NotNil(t, captured.MaxCompletionTokens)
	require.Equal(t, 100, *captured.MaxCompletionTokens)
}

func TestGenerateStructuredOutput(t *testing.T) {
	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody(`{"verdict":"yes","reasoning":"done"}`)))
	}))
	defer server.Close()

	provider := New(WithAPIKey("k"), WithEndpoint(server.URL))
	_, err := provider.Generate(context.Background(),
		[]*llm.Message{llm.NewUserMessage("hi")},
		llm.WithResponseFormat(&llm.ResponseFormat{
			Name:   "chat_rule",
			Schema: map[string]any{"type": "object"},
		}),
	)
	require.NoError(t, err)
	require.NotNil(t, captured.ResponseFormat)
	require.Equal(t, "json_schema", captured.ResponseFormat.Type)
	require.Equal(t, "chat_rule", captured.ResponseFormat.JSONSchema.Name)
	require.True(t, captured.ResponseFormat.JSONSchema.Strict)
}

func TestGenerateToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
		  "id": "chatcmpl-2",
		  "model": "gpt-4o",
		  "choices": [{"index": 0, "message": {"role": "assistant", "content": "",
		    "tool_calls": [{"id": "call_1", "type": "function",
		      "function": {"name": "cxr_report_gen", "arguments": "{\"patient\":\"patient_4\"}"}}]},
		    "finish_reason": "tool_calls"}],
		  "usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	}))
	defer server.Close()

	provider := New(WithAPIKey("k"), WithEndpoint(server.URL))
	response, err := provider.Generate(context.Background(),
		[]*llm.Message{llm.NewUserMessage("draft the report")})
	require.NoError(t, err)

	calls := response.ToolCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, "cxr_report_gen", calls[0].Name)
	require.JSONEq(t, `{"patient":"patient_4"}`, calls[0].Arguments)
}

func TestGenerateDoesNotRetryAuthFailure(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := New(WithAPIKey("bad"), WithEndpoint(server.URL))
	_, err := provider.Generate(context.Background(),
		[]*llm.Message{llm.NewUserMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
	require.Equal(t, 1, requests)
}

func TestGenerateRejectsEmptyInput(t *testing.T) {
	provider := New(WithAPIKey("k"), WithEndpoint("http://localhost:0"))

	_, err := provider.Generate(context.Background(), nil)
	require.Error(t, err)

	_, err = provider.Generate(context.Background(), []*llm.Message{{Role: llm.User}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty message")
}
