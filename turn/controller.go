// Package turn implements the turn controller: the single component that
// sees a conversation's history before and after the group chat and the
// only one permitted to emit user-visible replies.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/config"
	"github.com/careboard-ai/careboard/groupchat"
	"github.com/careboard-ai/careboard/history"
	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/patientctx"
	"github.com/careboard-ai/careboard/slogger"
)

// Reply texts surfaced to the user.
const (
	ClearedReply = "Conversation cleared!"
	ErrorReply   = "Orchestrator encountered an error. Please retry your request."
	TimeoutReply = "The turn timed out. Messages completed so far have been saved. Please retry your request."
)

const persistTimeout = 30 * time.Second

// ReplySink receives user-visible reply messages as they are produced.
type ReplySink func(text string)

// Request is one inbound user turn, shared by every ingress path.
type Request struct {
	ConversationID string
	UserText       string
	Reply          ReplySink
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	History     *history.Accessor
	Service     *patientctx.Service
	Agents      []careboard.Agent
	Facilitator string

	// Selector and Terminator are the scheduler's LLM evaluators; either
	// may be nil (deterministic rules only).
	Selector   llm.Completer
	Terminator llm.Completer

	Settings *config.Settings
	Logger   slogger.Logger
}

// Controller runs the turn pipeline. Turns for the same conversation are
// serialized behind a per-conversation lock held for the whole turn; turns
// for different conversations run in parallel.
type Controller struct {
	history    *history.Accessor
	service    *patientctx.Service
	selector   llm.Completer
	terminator llm.Completer
	settings   *config.Settings
	logger     slogger.Logger

	mu          sync.RWMutex
	agents      []careboard.Agent
	facilitator string

	locks sync.Map // conversation id -> *sync.Mutex
}

// NewController validates the options and creates a Controller.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.History == nil || opts.Service == nil {
		return nil, fmt.Errorf("history accessor and context service required")
	}
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	c := &Controller{
		history:    opts.History,
		service:    opts.Service,
		selector:   opts.Selector,
		terminator: opts.Terminator,
		settings:   opts.Settings,
		logger:     logger,
	}
	if err := c.SetAgents(opts.Agents, opts.Facilitator); err != nil {
		return nil, err
	}
	return c, nil
}

// SetAgents swaps the agent roster, used at startup and on config hot
// reload. In-flight turns keep the roster they started with.
func (c *Controller) SetAgents(agents []careboard.Agent, facilitator string) error {
	found := false
	for _, agent := range agents {
		if agent.Name() == facilitator {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("facilitator %q is not in the agent roster", facilitator)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = agents
	c.facilitator = facilitator
	return nil
}

func (c *Controller) roster() ([]careboard.Agent, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.agents, c.facilitator
}

// HandleTurn executes the turn pipeline for one user message. Replies are
// delivered through req.Reply as they are produced.
func (c *Controller) HandleTurn(ctx context.Context, req Request) error {
	if req.ConversationID == "" {
		return fmt.Errorf("conversation id required")
	}
	unlock := c.lockConversation(req.ConversationID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, c.settings.TurnDeadline)
	defer cancel()

	logger := c.logger.With("conversation_id", req.ConversationID)

	// Step 1: patient-agnostic session load.
	chatCtx, err := c.history.Read(ctx, req.ConversationID, "")
	if err != nil {
		c.reply(req, ErrorReply)
		return fmt.Errorf("load session context: %w", err)
	}

	// Step 2: explicit clear command.
	if c.settings.IsClearCommand(req.UserText) {
		clearErr := c.service.Clear(ctx, chatCtx)
		c.reply(req, ClearedReply)
		if clearErr != nil {
			logger.Error("clear completed with failures", "error", clearErr)
			return fmt.Errorf("clear conversation: %w", clearErr)
		}
		logger.Info("conversation cleared")
		return nil
	}

	// Step 3: patient context decision.
	decision, timing, err := c.service.DecideAndApply(ctx, req.UserText, chatCtx)
	if err != nil {
		c.reply(req, ErrorReply)
		return fmt.Errorf("patient context decision: %w", err)
	}
	logger.Info("patient context decision applied",
		"decision", decision,
		"patient_id", chatCtx.PatientID,
		"analyzer_duration", timing.Analyzer,
		"service_duration", timing.Service)

	// Step 4: activation intent without a usable id.
	if decision == patientctx.ResultNeedsPatientID {
		c.reply(req, fmt.Sprintf(
			"I need a patient ID like 'patient_4' matching the pattern %s (e.g., 'start tumor board review for patient_4').",
			c.service.Pattern().String()))
		return nil
	}

	// Step 5: per-patient history isolation.
	if chatCtx.PatientID != "" {
		isolated, err := c.history.Read(ctx, req.ConversationID, chatCtx.PatientID)
		if err != nil {
			c.reply(req, ErrorReply)
			return fmt.Errorf("load patient context: %w", err)
		}
		chatCtx.ChatHistory = isolated.ChatHistory
	}

	// Step 6: snapshot strip + inject.
	careboard.InjectSnapshot(chatCtx, time.Now())

	// Step 7: append the user message and run the group chat.
	chatCtx.ChatHistory = append(chatCtx.ChatHistory, llm.NewUserMessage(req.UserText))

	agents, facilitator := c.roster()
	scheduler, err := groupchat.New(groupchat.Options{
		Agents:        agents,
		Facilitator:   facilitator,
		MaxIterations: c.settings.MaxTurnIterations,
		Selector:      c.selector,
		Terminator:    c.terminator,
		Logger:        logger,
	})
	if err != nil {
		c.reply(req, ErrorReply)
		return fmt.Errorf("construct group chat: %w", err)
	}

	result, runErr := scheduler.Run(ctx, chatCtx, func(message *llm.Message) {
		c.reply(req, c.withAuditFooter(chatCtx, message.Content))
	})

	// Step 8: persist. The deadline may already be expired; completed
	// messages are still written.
	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()
	if err := c.history.Write(persistCtx, chatCtx); err != nil {
		logger.Error("failed to save chat context", "error", err)
		if runErr == nil {
			c.reply(req, ErrorReply)
		}
		return fmt.Errorf("save chat context: %w", err)
	}

	if runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) {
			logger.Warn("turn deadline exceeded", "iterations", result.Iterations)
			c.reply(req, TimeoutReply)
		}
		return runErr
	}

	logger.Info("turn complete", "outcome", result.Outcome, "iterations", result.Iterations)
	return nil
}

func (c *Controller) lockConversation(conversationID string) func() {
	value, _ := c.locks.LoadOrStore(conversationID, &sync.Mutex{})
	lock := value.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

func (c *Controller) reply(req Request, text string) {
	if req.Reply != nil {
		req.Reply(text)
	}
}

// withAuditFooter appends the PT_CTX audit block to outgoing replies when
// patients are known. The literal guard prevents duplication when an agent
// already echoed a footer.
func (c *Controller) withAuditFooter(chatCtx *careboard.ChatContext, text string) string {
	allPatientIDs := chatCtx.RosterIDs()
	if len(allPatientIDs) == 0 || strings.Contains(text, "PT_CTX:") {
		return text
	}
	parts := make([]string, 0, len(allPatientIDs))
	for _, patientID := range allPatientIDs {
		entry := "`" + patientID + "`"
		if patientID == chatCtx.PatientID {
			entry += " (active)"
		}
		parts = append(parts, entry)
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n---\n*PT_CTX:*\n")
	b.WriteString("- **Session ID:** `" + chatCtx.ConversationID + "`\n")
	if chatCtx.PatientID != "" {
		b.WriteString("- **Patient ID:** `" + chatCtx.PatientID + "`\n")
	} else {
		b.WriteString("- *No active patient.*\n")
	}
	b.WriteString("- **Session Patients:** " + strings.Join(parts, ", "))
	return b.String()
}
