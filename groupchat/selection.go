package groupchat

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/careboard-ai/careboard/llm"
)

var (
	handoffPattern  = regexp.MustCompile(`\*([A-Za-z0-9_-]+)\*`)
	numberedPattern = regexp.MustCompile(`(?m)^\s*\d+\.`)
	bulletPattern   = regexp.MustCompile(`(?m)^\s*- `)
)

// selectNext picks the next speaker. The second return value is true when
// the confirmation gate fired and the turn must yield to the user.
//
// Rule order: confirmation gate, explicit *AgentName* handoff, LLM selector,
// facilitator default. Non-facilitators speak at most once per user turn.
func (s *Scheduler) selectNext(ctx context.Context, history []*llm.Message, spoken map[string]bool) (string, bool) {
	last := lastNonSystem(history)
	if last == nil {
		return s.facilitator, false
	}

	if s.gateFires(last) {
		return "", true
	}

	if target := s.handoffTarget(last); target != "" {
		if target == s.facilitator || !spoken[target] {
			return target, false
		}
	}

	if s.selector != nil {
		if name, ok := s.llmSelect(ctx, history); ok {
			if name != s.facilitator && spoken[name] {
				return s.facilitator, false
			}
			return name, false
		}
	}

	return s.facilitator, false
}

// gateFires reports whether the most recent non-system message is a
// facilitator plan awaiting user confirmation. Because last is the most
// recent non-system message, no user message can follow it.
func (s *Scheduler) gateFires(last *llm.Message) bool {
	if last.Role != llm.Assistant || last.Name != s.facilitator {
		return false
	}
	return hasPlanIndicators(last.Content)
}

func hasPlanIndicators(text string) bool {
	if strings.Contains(text, "Plan") || strings.Contains(text, "plan:") {
		return true
	}
	if len(numberedPattern.FindAllString(text, 2)) >= 2 {
		return true
	}
	return len(bulletPattern.FindAllString(text, 2)) >= 2
}

// handoffTarget extracts an explicit *AgentName* handoff from the most
// recent message, ignoring tokens that are not participants and the
// speaker's own name.
func (s *Scheduler) handoffTarget(last *llm.Message) string {
	for _, match := range handoffPattern.FindAllStringSubmatch(last.Content, -1) {
		name := match[1]
		if name == last.Name {
			continue
		}
		if _, ok := s.agents[name]; ok {
			return name
		}
	}
	return ""
}

// llmSelect asks the selector LLM for the next speaker. Any verdict that is
// not a participant, and any transport or parse failure, falls back to the
// facilitator.
func (s *Scheduler) llmSelect(ctx context.Context, history []*llm.Message) (string, bool) {
	response, err := s.selector.Generate(ctx,
		[]*llm.Message{llm.NewUserMessage("History:\n" + renderHistory(history))},
		llm.WithSystemPrompt(s.selectionPrompt()),
		llm.WithTemperature(0),
		llm.WithSeed(42),
		llm.WithResponseFormat(chatRuleFormat),
	)
	if err != nil {
		s.logger.Error("selection function failed", "error", err)
		return s.facilitator, true
	}

	var rule ChatRule
	if err := json.Unmarshal([]byte(response.Text()), &rule); err != nil {
		s.logger.Error("selection function parsing error", "error", err, "raw", response.Text())
		return s.facilitator, true
	}
	if _, ok := s.agents[rule.Verdict]; !ok {
		s.logger.Debug("selection verdict is not a participant, using facilitator", "verdict", rule.Verdict)
		return s.facilitator, true
	}
	s.logger.Debug("selection function result", "verdict", rule.Verdict, "reasoning", rule.Reasoning)
	return rule.Verdict, true
}

func lastNonSystem(history []*llm.Message) *llm.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != llm.System {
			return history[i]
		}
	}
	return nil
}

func renderHistory(history []*llm.Message) string {
	var b strings.Builder
	for _, message := range history {
		if message.Role == llm.System {
			continue
		}
		speaker := string(message.Role)
		if message.Name != "" {
			speaker = message.Name
		}
		b.WriteString("*" + speaker + "*: " + message.Content + "\n")
	}
	return b.String()
}
