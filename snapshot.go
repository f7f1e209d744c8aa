package careboard

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/careboard-ai/careboard/llm"
)

// SnapshotPrefix marks the ephemeral patient-context system message. These
// messages exist only in the working history handed to agents and are never
// persisted.
const SnapshotPrefix = "PATIENT_CONTEXT_JSON:"

// Snapshot is the payload carried in the snapshot system message.
type Snapshot struct {
	ConversationID string   `json:"conversation_id"`
	PatientID      *string  `json:"patient_id"`
	AllPatientIDs  []string `json:"all_patient_ids"`
	GeneratedAt    string   `json:"generated_at"`
}

// IsSnapshot reports whether the message is a snapshot system message.
func IsSnapshot(m *llm.Message) bool {
	return m != nil && m.Role == llm.System && strings.HasPrefix(m.Content, SnapshotPrefix)
}

// StripSnapshots removes every snapshot system message from history.
func StripSnapshots(history []*llm.Message) []*llm.Message {
	filtered := make([]*llm.Message, 0, len(history))
	for _, m := range history {
		if IsSnapshot(m) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// InjectSnapshot strips any stale snapshot messages and, when a patient is
// active or the roster is non-empty, inserts exactly one fresh snapshot at
// index 0.
func InjectSnapshot(chatCtx *ChatContext, now time.Time) {
	chatCtx.ChatHistory = StripSnapshots(chatCtx.ChatHistory)

	if chatCtx.PatientID == "" && len(chatCtx.PatientContexts) == 0 {
		return
	}

	snapshot := Snapshot{
		ConversationID: chatCtx.ConversationID,
		AllPatientIDs:  chatCtx.RosterIDs(),
		GeneratedAt:    now.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if chatCtx.PatientID != "" {
		patientID := chatCtx.PatientID
		snapshot.PatientID = &patientID
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	message := llm.NewSystemMessage(SnapshotPrefix + " " + string(payload))
	chatCtx.ChatHistory = append([]*llm.Message{message}, chatCtx.ChatHistory...)
}
