package groupchat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/careboard-ai/careboard/llm"
)

// ChatRule is the structured verdict returned by the selection and
// termination evaluators.
type ChatRule struct {
	Verdict   string `json:"verdict"`
	Reasoning string `json:"reasoning"`
}

var chatRuleFormat = &llm.ResponseFormat{
	Name: "chat_rule",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"verdict":   map[string]any{"type": "string"},
			"reasoning": map[string]any{"type": "string"},
		},
		"required":             []string{"verdict", "reasoning"},
		"additionalProperties": false,
	},
}

// shouldTerminate decides whether the turn ends after the latest message.
// Deterministic overrides run first; only then is the LLM evaluator
// consulted. Evaluator failures continue the conversation (the iteration
// cap still bounds the turn).
func (s *Scheduler) shouldTerminate(ctx context.Context, history []*llm.Message) bool {
	if len(history) == 0 {
		return true
	}
	last := history[len(history)-1]
	lower := strings.ToLower(last.Content)

	if strings.HasPrefix(lower, "patient_context_json") {
		return false
	}
	if strings.Contains(lower, "back to you") {
		return false
	}

	if s.terminator == nil {
		return true
	}

	response, err := s.terminator.Generate(ctx,
		[]*llm.Message{llm.NewUserMessage("History:\n" + renderHistory([]*llm.Message{last}))},
		llm.WithSystemPrompt(s.terminationPrompt()),
		llm.WithTemperature(0),
		llm.WithSeed(42),
		llm.WithResponseFormat(chatRuleFormat),
	)
	if err != nil {
		s.logger.Error("termination function failed", "error", err)
		return false
	}

	var rule ChatRule
	if err := json.Unmarshal([]byte(response.Text()), &rule); err != nil {
		s.logger.Error("termination function parsing error", "error", err, "raw", response.Text())
		return false
	}
	s.logger.Debug("termination function result", "verdict", rule.Verdict, "reasoning", rule.Reasoning)
	return rule.Verdict == "yes"
}
