package patientctx

import (
	"context"
	"errors"
	"testing"

	"github.com/careboard-ai/careboard/llm"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter returns canned replies in order; the last reply repeats.
type scriptedCompleter struct {
	replies []string
	err     error
	calls   int
}

func (c *scriptedCompleter) Name() string { return "scripted" }

func (c *scriptedCompleter) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.Option) (*llm.Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.replies) == 0 {
		return &llm.Response{Message: llm.NewAssistantMessage("", "")}, nil
	}
	index := c.calls - 1
	if index >= len(c.replies) {
		index = len(c.replies) - 1
	}
	return &llm.Response{Message: llm.NewAssistantMessage("", c.replies[index])}, nil
}

func newScriptedAnalyzer(completer *scriptedCompleter) (*Analyzer, *int) {
	factoryCalls := 0
	analyzer := NewAnalyzer(func() llm.Completer {
		factoryCalls++
		return completer
	}, nil)
	return analyzer, &factoryCalls
}

func TestAnalyzeEmptyInput(t *testing.T) {
	completer := &scriptedCompleter{}
	analyzer, _ := newScriptedAnalyzer(completer)

	decision := analyzer.Analyze(context.Background(), "   ", "", nil)
	require.Equal(t, ActionNone, decision.Action)
	require.Zero(t, completer.calls)
}

func TestAnalyzeParsesDecision(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"action":"ACTIVATE_NEW","patient_id":"patient_4","reasoning":"New patient mentioned."}`,
	}}
	analyzer, _ := newScriptedAnalyzer(completer)

	decision := analyzer.Analyze(context.Background(), "start tumor board review for patient_4", "", nil)
	require.Equal(t, ActionActivateNew, decision.Action)
	require.Equal(t, "patient_4", decision.PatientID)
	require.NotEmpty(t, decision.Reasoning)
}

func TestAnalyzeTransportErrorDegradesToNone(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("connection refused")}
	analyzer, _ := newScriptedAnalyzer(completer)

	decision := analyzer.Analyze(context.Background(), "switch to patient_2", "patient_4", []string{"patient_2", "patient_4"})
	require.Equal(t, ActionNone, decision.Action)
}

func TestAnalyzeMalformedResponseDegradesToNone(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"not json at all"}}
	analyzer, _ := newScriptedAnalyzer(completer)

	decision := analyzer.Analyze(context.Background(), "switch to patient_2", "", nil)
	require.Equal(t, ActionNone, decision.Action)
}

func TestAnalyzeUnknownActionDegradesToNone(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"action":"EXPLODE","patient_id":null,"reasoning":"?"}`,
	}}
	analyzer, _ := newScriptedAnalyzer(completer)

	decision := analyzer.Analyze(context.Background(), "switch to patient_2", "", nil)
	require.Equal(t, ActionNone, decision.Action)
}

func TestResetRebuildsCompleter(t *testing.T) {
	completer := &scriptedCompleter{}
	analyzer, factoryCalls := newScriptedAnalyzer(completer)
	require.Equal(t, 1, *factoryCalls)

	analyzer.Reset()
	require.Equal(t, 2, *factoryCalls)
}
