package patientctx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/slogger"
)

const (
	analyzerMaxTokens   = 200
	analyzerTemperature = 0.1
)

var decisionFormat = &llm.ResponseFormat{
	Name:        "patient_context_decision",
	Description: "Patient context decision for a healthcare conversation",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{"NONE", "CLEAR", "ACTIVATE_NEW", "SWITCH_EXISTING", "UNCHANGED"},
			},
			"patient_id": map[string]any{
				"type": []string{"string", "null"},
			},
			"reasoning": map[string]any{
				"type": "string",
			},
		},
		"required":             []string{"action", "patient_id", "reasoning"},
		"additionalProperties": false,
	},
}

// Analyzer classifies user input into patient context actions using an LLM
// with structured output. It never fails hard: transport or parse errors
// degrade to a NONE decision.
//
// The completer is rebuilt on Reset to prevent state contamination when the
// active patient changes.
type Analyzer struct {
	mu        sync.Mutex
	factory   func() llm.Completer
	completer llm.Completer
	logger    slogger.Logger
}

// NewAnalyzer creates an Analyzer. The factory is invoked once up front and
// again on every Reset.
func NewAnalyzer(factory func() llm.Completer, logger slogger.Logger) *Analyzer {
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	return &Analyzer{
		factory:   factory,
		completer: factory(),
		logger:    logger,
	}
}

// Reset rebuilds the underlying completer for patient context isolation.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completer = a.factory()
	a.logger.Info("analyzer reset for patient context isolation")
}

func (a *Analyzer) current() llm.Completer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completer
}

// Analyze classifies userText given the current active patient and known
// roster. Empty input short-circuits to NONE without an LLM call.
func (a *Analyzer) Analyze(ctx context.Context, userText, priorPatientID string, knownPatientIDs []string) *Decision {
	if strings.TrimSpace(userText) == "" {
		return &Decision{
			Action:    ActionNone,
			Reasoning: "Empty or whitespace user input; no action needed.",
		}
	}

	messages := []*llm.Message{
		llm.NewUserMessage("User input: " + userText),
	}
	response, err := a.current().Generate(ctx, messages,
		llm.WithSystemPrompt(analyzerSystemPrompt(priorPatientID, knownPatientIDs)),
		llm.WithMaxTokens(analyzerMaxTokens),
		llm.WithTemperature(analyzerTemperature),
		llm.WithResponseFormat(decisionFormat),
	)
	if err != nil {
		a.logger.Error("patient context analysis failed", "error", err)
		return &Decision{Action: ActionNone, Reasoning: "Analysis error; defaulting to NONE."}
	}
	if response.Text() == "" {
		a.logger.Warn("no response from patient context analyzer")
		return &Decision{Action: ActionNone, Reasoning: "No response from analyzer; defaulting to NONE."}
	}

	var decision Decision
	if err := json.Unmarshal([]byte(response.Text()), &decision); err != nil {
		a.logger.Error("failed to parse structured analyzer response", "error", err)
		return &Decision{Action: ActionNone, Reasoning: "Parse error; defaulting to NONE."}
	}
	switch decision.Action {
	case ActionNone, ActionClear, ActionActivateNew, ActionSwitchExisting, ActionUnchanged:
	default:
		a.logger.Warn("unexpected analyzer action", "action", decision.Action)
		return &Decision{Action: ActionNone, Reasoning: "Unexpected analyzer action; defaulting to NONE."}
	}

	a.logger.Info("patient context decision",
		"action", decision.Action,
		"patient_id", decision.PatientID,
		"reasoning", decision.Reasoning)
	return &decision
}

func analyzerSystemPrompt(priorPatientID string, knownPatientIDs []string) string {
	prior := priorPatientID
	if prior == "" {
		prior = "None"
	}
	known := "[]"
	if len(knownPatientIDs) > 0 {
		known = "[" + strings.Join(knownPatientIDs, ", ") + "]"
	}
	return fmt.Sprintf(`You are a patient context analyzer for healthcare conversations.

TASK: Analyze user input and decide the appropriate patient context action.

AVAILABLE ACTIONS:
- NONE: No patient context needed (general questions, greetings, system commands)
- CLEAR: User wants to clear/reset all patient context
- ACTIVATE_NEW: User mentions a new patient ID not in the known patient list
- SWITCH_EXISTING: User wants to switch to a different known patient
- UNCHANGED: Continue with current patient context

CURRENT STATE:
- Active patient ID: %s
- Known patient IDs: %s

ANALYSIS RULES:
1. Extract patient_id ONLY if action is ACTIVATE_NEW or SWITCH_EXISTING
2. Patient IDs typically follow "patient_X" format or are explicit medical record numbers
3. For CLEAR/NONE/UNCHANGED actions, set patient_id to null
4. Prioritize explicit patient mentions over implicit context
5. Keep reasoning brief and specific (max 50 words)

Respond with a structured JSON object matching the required schema.`, prior, known)
}
