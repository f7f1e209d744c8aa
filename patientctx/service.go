package patientctx

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/history"
	"github.com/careboard-ai/careboard/registry"
	"github.com/careboard-ai/careboard/slogger"
)

// DefaultPatientIDPattern is the accepted patient identifier format.
var DefaultPatientIDPattern = regexp.MustCompile(`^patient_[0-9]+$`)

// Messages this short that mention none of these keywords skip the analyzer
// entirely.
const shortMessageLimit = 15

var heuristicKeywords = []string{"patient", "clear", "switch"}

// Service owns patient context decisions for conversations. The registry is
// authoritative for the patient roster; the analyzer decides activation,
// switching, and clearing. Snapshot injection is the Turn Controller's job,
// never the Service's.
type Service struct {
	analyzer *Analyzer
	registry *registry.Accessor
	history  *history.Accessor
	pattern  *regexp.Regexp
	logger   slogger.Logger
	now      func() time.Time
}

// NewService creates a Service. A nil pattern falls back to
// DefaultPatientIDPattern.
func NewService(analyzer *Analyzer, registryAccessor *registry.Accessor, historyAccessor *history.Accessor, pattern *regexp.Regexp, logger slogger.Logger) *Service {
	if pattern == nil {
		pattern = DefaultPatientIDPattern
	}
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	return &Service{
		analyzer: analyzer,
		registry: registryAccessor,
		history:  historyAccessor,
		pattern:  pattern,
		logger:   logger,
		now:      time.Now,
	}
}

// DecideAndApply classifies userText and applies the resulting transition to
// chatCtx, the registry, and (on clear) the stored histories. The returned
// error reports infrastructure failures; the Result is meaningful either
// way.
func (s *Service) DecideAndApply(ctx context.Context, userText string, chatCtx *careboard.ChatContext) (Result, *TimingInfo, error) {
	serviceStart := time.Now()
	timing := &TimingInfo{}
	defer func() {
		timing.Service = time.Since(serviceStart)
	}()

	// Registry roster is authoritative; refresh before deciding.
	s.hydrate(ctx, chatCtx)

	trimmed := strings.TrimSpace(userText)
	if trimmed != "" && utf8.RuneCountInString(trimmed) <= shortMessageLimit && !mentionsKeyword(trimmed) {
		if chatCtx.PatientID == "" {
			fallbackStart := time.Now()
			restored := s.restore(ctx, chatCtx)
			timing.StorageFallback = time.Since(fallbackStart)
			if restored {
				return ResultRestored, timing, nil
			}
			return ResultNone, timing, nil
		}
		return ResultUnchanged, timing, nil
	}

	analyzerStart := time.Now()
	decision := s.analyzer.Analyze(ctx, userText, chatCtx.PatientID, chatCtx.RosterIDs())
	timing.Analyzer = time.Since(analyzerStart)

	switch decision.Action {
	case ActionClear:
		err := s.Clear(ctx, chatCtx)
		return ResultClear, timing, err

	case ActionActivateNew, ActionSwitchExisting:
		if decision.PatientID == "" || !s.pattern.MatchString(decision.PatientID) {
			return ResultNeedsPatientID, timing, nil
		}
		result, err := s.activate(ctx, chatCtx, decision.PatientID)
		return result, timing, err

	case ActionNone:
		if chatCtx.PatientID == "" {
			fallbackStart := time.Now()
			restored := s.restore(ctx, chatCtx)
			timing.StorageFallback = time.Since(fallbackStart)
			if restored {
				return ResultRestored, timing, nil
			}
			return ResultNone, timing, nil
		}
		return ResultUnchanged, timing, nil

	case ActionUnchanged:
		return ResultUnchanged, timing, nil

	default:
		return ResultNone, timing, nil
	}
}

// Pattern returns the patient id pattern in force.
func (s *Service) Pattern() *regexp.Regexp {
	return s.pattern
}

// Clear archives the session history, every roster patient history, and the
// registry into a single archive/{ts}/ folder, writes a fresh empty session
// file, and resets in-memory state. Archival is best-effort: one failed copy
// does not prevent the others; all failures are joined into the returned
// error.
func (s *Service) Clear(ctx context.Context, chatCtx *careboard.ChatContext) error {
	if chatCtx.PatientID != "" {
		s.analyzer.Reset()
	}

	patientIDs := chatCtx.RosterIDs()
	if roster, _, err := s.registry.Read(ctx, chatCtx.ConversationID); err == nil {
		patientIDs = patientIDs[:0]
		for id := range roster {
			patientIDs = append(patientIDs, id)
		}
	}

	timestamp := s.now().UTC().Format(history.ArchiveTimestampFormat)
	folder := fmt.Sprintf("%s/archive/%s", chatCtx.ConversationID, timestamp)

	var errs []error
	if err := s.history.ArchiveToFolder(ctx, chatCtx.ConversationID, "", folder); err != nil {
		s.logger.Warn("archive session failed", "error", err)
		errs = append(errs, fmt.Errorf("archive session: %w", err))
	}
	for _, patientID := range patientIDs {
		if err := s.history.ArchiveToFolder(ctx, chatCtx.ConversationID, patientID, folder); err != nil {
			s.logger.Warn("archive patient failed", "patient_id", patientID, "error", err)
			errs = append(errs, fmt.Errorf("archive patient %s: %w", patientID, err))
		}
	}
	if err := s.registry.Archive(ctx, chatCtx.ConversationID, folder); err != nil {
		s.logger.Warn("archive registry failed", "error", err)
		errs = append(errs, fmt.Errorf("archive registry: %w", err))
	}

	if err := s.history.Write(ctx, careboard.NewChatContext(chatCtx.ConversationID)); err != nil {
		errs = append(errs, fmt.Errorf("write fresh session: %w", err))
	}

	chatCtx.PatientID = ""
	chatCtx.PatientContexts = map[string]*careboard.PatientContext{}
	chatCtx.ChatHistory = nil

	return errors.Join(errs...)
}

// SetExplicitPatient activates patientID directly, bypassing the analyzer.
// Returns false when the id does not match the accepted pattern.
func (s *Service) SetExplicitPatient(ctx context.Context, patientID string, chatCtx *careboard.ChatContext) (bool, error) {
	if patientID == "" || !s.pattern.MatchString(patientID) {
		return false, nil
	}
	if chatCtx.PatientID != "" && chatCtx.PatientID != patientID {
		s.analyzer.Reset()
	}
	s.hydrate(ctx, chatCtx)
	if _, ok := chatCtx.PatientContexts[patientID]; !ok {
		chatCtx.PatientContexts[patientID] = careboard.NewPatientContext(chatCtx.ConversationID, patientID, s.now().UTC())
	}
	chatCtx.PatientID = patientID
	return true, s.updateRegistry(ctx, chatCtx)
}

func (s *Service) activate(ctx context.Context, chatCtx *careboard.ChatContext, patientID string) (Result, error) {
	if chatCtx.PatientID == patientID {
		return ResultUnchanged, nil
	}

	if _, ok := chatCtx.PatientContexts[patientID]; ok {
		chatCtx.PatientID = patientID
		s.analyzer.Reset()
		return ResultSwitchExisting, s.updateRegistry(ctx, chatCtx)
	}

	chatCtx.PatientContexts[patientID] = careboard.NewPatientContext(chatCtx.ConversationID, patientID, s.now().UTC())
	chatCtx.PatientID = patientID
	s.analyzer.Reset()
	return ResultNewBlank, s.updateRegistry(ctx, chatCtx)
}

func (s *Service) updateRegistry(ctx context.Context, chatCtx *careboard.ChatContext) error {
	current := chatCtx.ActivePatient()
	if current == nil {
		return nil
	}
	if err := s.registry.Upsert(ctx, chatCtx.ConversationID, current, chatCtx.PatientID); err != nil {
		s.logger.Warn("failed registry update", "error", err)
		return err
	}
	return nil
}

func (s *Service) hydrate(ctx context.Context, chatCtx *careboard.ChatContext) {
	roster, _, err := s.registry.Read(ctx, chatCtx.ConversationID)
	if err != nil {
		s.logger.Warn("failed to load patient contexts from registry", "error", err)
		return
	}
	chatCtx.PatientContexts = roster
}

func (s *Service) restore(ctx context.Context, chatCtx *careboard.ChatContext) bool {
	roster, active, err := s.registry.Read(ctx, chatCtx.ConversationID)
	if err != nil {
		s.logger.Warn("restore from registry failed", "error", err)
		return false
	}
	if active == "" {
		return false
	}
	if _, ok := roster[active]; !ok {
		return false
	}
	chatCtx.PatientContexts = roster
	chatCtx.PatientID = active
	return true
}

func mentionsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range heuristicKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
