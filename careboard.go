// Package careboard orchestrates multi-agent healthcare conversations:
// patient context tracking, group-chat scheduling, and durable conversation
// state.
package careboard

import (
	"context"
	"sort"
	"time"

	"github.com/careboard-ai/careboard/llm"
)

// Agent is a conversation participant. Invoke receives the full working
// history for the turn, including any snapshot system message at index 0,
// and returns the agent's reply.
type Agent interface {
	// Name of the agent, unique within a roster.
	Name() string

	// Description of the agent's specialty, shown to the facilitator.
	Description() string

	// Invoke produces the agent's reply to the conversation so far.
	Invoke(ctx context.Context, history []*llm.Message) (*llm.Message, error)
}

// PatientContext is the per-patient record carried in the conversation
// roster and persisted in the patient context registry.
type PatientContext struct {
	PatientID      string         `json:"patient_id"`
	ConversationID string         `json:"conversation_id"`
	Facts          map[string]any `json:"facts,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewPatientContext creates a blank record for the given patient.
func NewPatientContext(conversationID, patientID string, now time.Time) *PatientContext {
	return &PatientContext{
		PatientID:      patientID,
		ConversationID: conversationID,
		Facts:          map[string]any{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ChatContext is the in-memory working state for one conversation turn.
// PatientID is empty when no patient is active. PatientContexts is the
// roster of every patient discussed in the conversation.
type ChatContext struct {
	ConversationID  string
	PatientID       string
	PatientContexts map[string]*PatientContext
	ChatHistory     []*llm.Message
}

// NewChatContext creates an empty context for the conversation.
func NewChatContext(conversationID string) *ChatContext {
	return &ChatContext{
		ConversationID:  conversationID,
		PatientContexts: map[string]*PatientContext{},
	}
}

// RosterIDs returns the known patient ids in sorted order.
func (c *ChatContext) RosterIDs() []string {
	ids := make([]string, 0, len(c.PatientContexts))
	for id := range c.PatientContexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActivePatient returns the roster record for the active patient, or nil.
func (c *ChatContext) ActivePatient() *PatientContext {
	if c.PatientID == "" {
		return nil
	}
	return c.PatientContexts[c.PatientID]
}
