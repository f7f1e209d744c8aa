// Package groupchat runs one user turn of a multi-agent conversation:
// repeated speaker selection, agent invocation, and termination evaluation,
// bounded by an iteration cap.
package groupchat

import (
	"context"
	"fmt"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/slogger"
)

// DefaultMaxIterations bounds the scheduler loop for one user turn.
const DefaultMaxIterations = 30

// Outcome describes how a turn's scheduler loop ended.
type Outcome string

const (
	// OutcomeAwaitUser means the confirmation gate fired: the facilitator
	// proposed a plan and control returns to the user.
	OutcomeAwaitUser Outcome = "await_user"

	// OutcomeDone means the termination rule decided the turn is complete.
	OutcomeDone Outcome = "done"

	// OutcomeCapReached means the iteration cap ended the turn.
	OutcomeCapReached Outcome = "cap_reached"
)

// Result summarizes a completed scheduler run.
type Result struct {
	Outcome    Outcome
	Iterations int
}

// Options configure a Scheduler.
type Options struct {
	// Agents is the full participant roster.
	Agents []careboard.Agent

	// Facilitator is the name of the coordinating agent. It must be a
	// roster member. The facilitator is the default speaker and may speak
	// multiple times per turn.
	Facilitator string

	// MaxIterations caps agent invocations per turn (default 30).
	MaxIterations int

	// Selector is the optional LLM used when the deterministic selection
	// rules do not pick a speaker. When nil, selection defaults to the
	// facilitator.
	Selector llm.Completer

	// Terminator is the optional LLM consulted after the deterministic
	// termination overrides. When nil, the turn ends after the overrides
	// pass.
	Terminator llm.Completer

	Logger slogger.Logger
}

// Scheduler drives the group chat for single user turns.
type Scheduler struct {
	agents        map[string]careboard.Agent
	names         []string
	facilitator   string
	maxIterations int
	selector      llm.Completer
	terminator    llm.Completer
	logger        slogger.Logger
}

// New validates the roster and creates a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if len(opts.Agents) == 0 {
		return nil, fmt.Errorf("group chat requires at least one agent")
	}
	agents := make(map[string]careboard.Agent, len(opts.Agents))
	names := make([]string, 0, len(opts.Agents))
	for _, agent := range opts.Agents {
		if _, ok := agents[agent.Name()]; ok {
			return nil, fmt.Errorf("duplicate agent name %q", agent.Name())
		}
		agents[agent.Name()] = agent
		names = append(names, agent.Name())
	}
	if _, ok := agents[opts.Facilitator]; !ok {
		return nil, fmt.Errorf("facilitator %q is not a participant", opts.Facilitator)
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	return &Scheduler{
		agents:        agents,
		names:         names,
		facilitator:   opts.Facilitator,
		maxIterations: maxIterations,
		selector:      opts.Selector,
		terminator:    opts.Terminator,
		logger:        logger,
	}, nil
}

// Run executes the scheduler loop against chatCtx.ChatHistory, appending
// every agent message to it and passing each to onMessage as it is
// produced. On context cancellation the partial result is returned with the
// context's error; messages completed before cancellation remain in the
// history.
func (s *Scheduler) Run(ctx context.Context, chatCtx *careboard.ChatContext, onMessage func(*llm.Message)) (*Result, error) {
	spoken := map[string]bool{}
	deferToFacilitator := false

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return &Result{Outcome: OutcomeCapReached, Iterations: iteration}, err
		}

		var speaker string
		if deferToFacilitator {
			speaker = s.facilitator
			deferToFacilitator = false
		} else {
			selected, gateFired := s.selectNext(ctx, chatCtx.ChatHistory, spoken)
			if gateFired {
				s.logger.Debug("confirmation gate fired, yielding to user",
					"conversation_id", chatCtx.ConversationID, "iteration", iteration)
				return &Result{Outcome: OutcomeAwaitUser, Iterations: iteration}, nil
			}
			speaker = selected
		}

		agent := s.agents[speaker]
		s.logger.Debug("invoking agent", "agent", speaker, "iteration", iteration)

		message, err := agent.Invoke(ctx, chatCtx.ChatHistory)
		if err != nil {
			if ctx.Err() != nil {
				// In-flight message is discarded on deadline expiry.
				return &Result{Outcome: OutcomeCapReached, Iterations: iteration}, ctx.Err()
			}
			s.logger.Error("agent invocation failed", "agent", speaker, "error", err)
			message = llm.NewAssistantMessage(speaker,
				fmt.Sprintf("%s was unable to respond: %v", speaker, err))
			deferToFacilitator = true
		}
		if message.Name == "" {
			message.Name = speaker
		}

		chatCtx.ChatHistory = append(chatCtx.ChatHistory, message)
		if onMessage != nil {
			onMessage(message)
		}
		if speaker != s.facilitator {
			spoken[speaker] = true
		}

		if s.shouldTerminate(ctx, chatCtx.ChatHistory) {
			return &Result{Outcome: OutcomeDone, Iterations: iteration + 1}, nil
		}
	}
	s.logger.Warn("group chat iteration cap reached", "conversation_id", chatCtx.ConversationID)
	return &Result{Outcome: OutcomeCapReached, Iterations: s.maxIterations}, nil
}
