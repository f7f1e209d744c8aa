// Package history persists per-conversation chat histories as JSON blobs.
// Each conversation has one session history plus one isolated history per
// patient discussed in it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/blobstore"
	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/retry"
	"github.com/careboard-ai/careboard/slogger"
)

// SchemaVersion is written on every history document for migration support.
const SchemaVersion = 2

// ArchiveTimestampFormat is the compact UTC timestamp used in archive names.
const ArchiveTimestampFormat = "20060102T150405"

// Accessor reads and writes chat histories through the blob store.
type Accessor struct {
	store  *blobstore.Store
	logger slogger.Logger
	now    func() time.Time
}

// NewAccessor creates an Accessor over the given store.
func NewAccessor(store *blobstore.Store, logger slogger.Logger) *Accessor {
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	return &Accessor{store: store, logger: logger, now: time.Now}
}

// Path returns the blob path for a conversation's history. An empty
// patientID addresses the shared session history.
func Path(conversationID, patientID string) string {
	if patientID != "" {
		return fmt.Sprintf("%s/patient_%s_context.json", conversationID, patientID)
	}
	return conversationID + "/session_context.json"
}

// document is the stored history layout.
type document struct {
	SchemaVersion  int              `json:"schema_version"`
	ConversationID string           `json:"conversation_id"`
	PatientID      *string          `json:"patient_id"`
	ChatHistory    []*storedMessage `json:"chat_history"`
}

type storedMessage struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// Read loads the history for the conversation (and patient, when given).
// A missing blob yields a fresh empty context rather than an error;
// transient store failures are retried before giving up.
func (a *Accessor) Read(ctx context.Context, conversationID, patientID string) (*careboard.ChatContext, error) {
	start := time.Now()
	path := Path(conversationID, patientID)

	var data []byte
	err := a.withRetry(ctx, func() error {
		var getErr error
		data, getErr = a.store.Get(ctx, path)
		return getErr
	})
	if blobstore.IsNotFound(err) {
		a.logger.Info("creating new chat context",
			"conversation_id", conversationID, "patient_id", patientID)
		return fresh(conversationID, patientID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat context %q: %w", path, err)
	}

	chatCtx, err := deserialize(data, a.logger)
	if err != nil {
		a.logger.Warn("malformed chat context, starting fresh",
			"path", path, "error", err)
		return fresh(conversationID, patientID), nil
	}
	if patientID != "" {
		chatCtx.PatientID = patientID
		if _, ok := chatCtx.PatientContexts[patientID]; !ok {
			chatCtx.PatientContexts[patientID] = careboard.NewPatientContext(conversationID, patientID, a.now().UTC())
		}
	} else {
		chatCtx.PatientID = ""
	}

	a.logger.Debug("read chat context", "path", path, "duration", time.Since(start))
	return chatCtx, nil
}

// Write persists the history for chatCtx, addressed by its active patient.
// Ephemeral snapshot system messages are filtered out before writing.
func (a *Accessor) Write(ctx context.Context, chatCtx *careboard.ChatContext) error {
	path := Path(chatCtx.ConversationID, chatCtx.PatientID)
	data, err := serialize(chatCtx)
	if err != nil {
		return fmt.Errorf("serialize chat context %q: %w", path, err)
	}
	err = a.withRetry(ctx, func() error {
		return a.store.Put(ctx, path, data)
	})
	if err != nil {
		return fmt.Errorf("write chat context %q: %w", path, err)
	}
	return nil
}

// ArchiveToFolder moves the live history into the archive folder as
// {ts}_{kind}_archived.json and deletes the live blob. Archiving a missing
// history is a no-op, so a replayed clear cannot fail here.
func (a *Accessor) ArchiveToFolder(ctx context.Context, conversationID, patientID, archiveFolder string) error {
	src := Path(conversationID, patientID)

	exists, err := a.store.Exists(ctx, src)
	if err != nil {
		return fmt.Errorf("archive chat context %q: %w", src, err)
	}
	if !exists {
		a.logger.Warn("no chat context found to archive",
			"conversation_id", conversationID, "patient_id", patientID)
		return nil
	}

	timestamp := a.now().UTC().Format(ArchiveTimestampFormat)
	var dst string
	if patientID != "" {
		dst = fmt.Sprintf("%s/%s/%s_patient_%s_archived.json", archiveFolder, conversationID, timestamp, patientID)
	} else {
		dst = fmt.Sprintf("%s/%s/%s_session_archived.json", archiveFolder, conversationID, timestamp)
	}

	err = a.withRetry(ctx, func() error {
		return a.store.Copy(ctx, src, dst)
	})
	if err != nil {
		return fmt.Errorf("archive chat context %q: %w", src, err)
	}
	if err := a.withRetry(ctx, func() error {
		return a.store.Delete(ctx, src)
	}); err != nil {
		return fmt.Errorf("delete archived chat context %q: %w", src, err)
	}

	a.logger.Info("archived chat context", "src", src, "dst", dst)
	return nil
}

// withRetry retries transient store failures with backoff; all other error
// kinds fail immediately.
func (a *Accessor) withRetry(ctx context.Context, f retry.RetryableFunc) error {
	return retry.WithRetry(ctx, func() error {
		if err := f(); err != nil {
			if blobstore.IsTransient(err) {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})
}

func fresh(conversationID, patientID string) *careboard.ChatContext {
	chatCtx := careboard.NewChatContext(conversationID)
	if patientID != "" {
		chatCtx.PatientID = patientID
		chatCtx.PatientContexts[patientID] = careboard.NewPatientContext(conversationID, patientID, time.Now().UTC())
	}
	return chatCtx
}

func serialize(chatCtx *careboard.ChatContext) ([]byte, error) {
	doc := document{
		SchemaVersion:  SchemaVersion,
		ConversationID: chatCtx.ConversationID,
		ChatHistory:    []*storedMessage{},
	}
	if chatCtx.PatientID != "" {
		patientID := chatCtx.PatientID
		doc.PatientID = &patientID
	}
	for _, msg := range chatCtx.ChatHistory {
		if careboard.IsSnapshot(msg) {
			continue
		}
		doc.ChatHistory = append(doc.ChatHistory, &storedMessage{
			Role:    string(msg.Role),
			Name:    msg.Name,
			Content: msg.Content,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

func deserialize(data []byte, logger slogger.Logger) (*careboard.ChatContext, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	chatCtx := careboard.NewChatContext(doc.ConversationID)
	if doc.PatientID != nil {
		chatCtx.PatientID = *doc.PatientID
	}
	for _, msg := range doc.ChatHistory {
		if msg.Role == "" {
			logger.Warn("skipping stored message with no role")
			continue
		}
		if msg.Content == "" && msg.Role == string(llm.ToolRole) {
			logger.Warn("skipping empty tool message")
			continue
		}
		chatCtx.ChatHistory = append(chatCtx.ChatHistory, &llm.Message{
			Role:    llm.Role(msg.Role),
			Name:    msg.Name,
			Content: msg.Content,
		})
	}
	return chatCtx, nil
}
