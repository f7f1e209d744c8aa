// Package registry persists the per-conversation patient roster: every
// patient encountered in a conversation plus which one is active.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/blobstore"
	"github.com/careboard-ai/careboard/retry"
	"github.com/careboard-ai/careboard/slogger"
)

// Accessor reads and writes patient context registries through the blob
// store.
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

// Path returns the registry blob path for a conversation.
func Path(conversationID string) string {
	return conversationID + "/patient_context_registry.json"
}

// document is the stored registry layout. LastUpdated never decreases
// across writes to the same conversation.
type document struct {
	ConversationID  string                               `json:"conversation_id"`
	ActivePatientID *string                              `json:"active_patient_id"`
	PatientRegistry map[string]*careboard.PatientContext `json:"patient_registry"`
	LastUpdated     time.Time                            `json:"last_updated"`
}

type archiveDocument struct {
	ConversationID  string                               `json:"conversation_id"`
	ArchivedAt      time.Time                            `json:"archived_at"`
	ActivePatientID *string                              `json:"active_patient_id"`
	PatientRegistry map[string]*careboard.PatientContext `json:"patient_registry"`
}

// Read returns the roster and active patient id for the conversation.
// A missing registry yields an empty roster and no active patient.
func (a *Accessor) Read(ctx context.Context, conversationID string) (map[string]*careboard.PatientContext, string, error) {
	doc, err := a.readDocument(ctx, conversationID)
	if blobstore.IsNotFound(err) {
		a.logger.Debug("no existing patient context registry", "conversation_id", conversationID)
		return map[string]*careboard.PatientContext{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	active := ""
	if doc.ActivePatientID != nil {
		active = *doc.ActivePatientID
	}
	if doc.PatientRegistry == nil {
		doc.PatientRegistry = map[string]*careboard.PatientContext{}
	}
	return doc.PatientRegistry, active, nil
}

// Write replaces the registry with the given roster and active patient.
// The active id, when set, must be a roster key.
func (a *Accessor) Write(ctx context.Context, conversationID string, roster map[string]*careboard.PatientContext, activePatientID string) error {
	if activePatientID != "" {
		if _, ok := roster[activePatientID]; !ok {
			return fmt.Errorf("active patient %q is not in the roster for %q", activePatientID, conversationID)
		}
	}
	if roster == nil {
		roster = map[string]*careboard.PatientContext{}
	}

	lastUpdated := a.now().UTC()
	if current, err := a.readDocument(ctx, conversationID); err == nil && current.LastUpdated.After(lastUpdated) {
		lastUpdated = current.LastUpdated
	}

	doc := document{
		ConversationID:  conversationID,
		PatientRegistry: roster,
		LastUpdated:     lastUpdated,
	}
	if activePatientID != "" {
		doc.ActivePatientID = &activePatientID
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize registry for %q: %w", conversationID, err)
	}
	err = a.withRetry(ctx, func() error {
		return a.store.Put(ctx, Path(conversationID), data)
	})
	if err != nil {
		return fmt.Errorf("write registry for %q: %w", conversationID, err)
	}
	a.logger.Info("wrote patient context registry",
		"conversation_id", conversationID, "active_patient_id", activePatientID, "roster_size", len(roster))
	return nil
}

// Upsert merges one patient record into the registry and sets the active
// patient. The record's UpdatedAt is refreshed.
func (a *Accessor) Upsert(ctx context.Context, conversationID string, patient *careboard.PatientContext, activePatientID string) error {
	roster, _, err := a.Read(ctx, conversationID)
	if err != nil {
		return err
	}
	patient.UpdatedAt = a.now().UTC()
	roster[patient.PatientID] = patient
	return a.Write(ctx, conversationID, roster, activePatientID)
}

// Archive writes an archival copy of the registry into archiveFolder and
// deletes the live blob. Archiving an empty or missing registry is a no-op.
func (a *Accessor) Archive(ctx context.Context, conversationID, archiveFolder string) error {
	roster, active, err := a.Read(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		a.logger.Info("no patient context registry to archive", "conversation_id", conversationID)
		return nil
	}

	now := a.now().UTC()
	timestamp := now.Format("20060102T150405")
	dst := fmt.Sprintf("%s/%s_patient_context_registry_archived.json", archiveFolder, timestamp)

	doc := archiveDocument{
		ConversationID:  conversationID,
		ArchivedAt:      now,
		PatientRegistry: roster,
	}
	if active != "" {
		doc.ActivePatientID = &active
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize registry archive for %q: %w", conversationID, err)
	}
	err = a.withRetry(ctx, func() error {
		return a.store.Put(ctx, dst, data)
	})
	if err != nil {
		return fmt.Errorf("archive registry for %q: %w", conversationID, err)
	}
	if err := a.withRetry(ctx, func() error {
		return a.store.Delete(ctx, Path(conversationID))
	}); err != nil {
		return fmt.Errorf("clear registry for %q: %w", conversationID, err)
	}
	a.logger.Info("archived patient context registry", "conversation_id", conversationID, "dst", dst)
	return nil
}

func (a *Accessor) readDocument(ctx context.Context, conversationID string) (*document, error) {
	path := Path(conversationID)
	var data []byte
	err := a.withRetry(ctx, func() error {
		var getErr error
		data, getErr = a.store.Get(ctx, path)
		return getErr
	})
	if err != nil {
		if blobstore.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("read registry %q: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry %q: %w", path, err)
	}
	return &doc, nil
}

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
