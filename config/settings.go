package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Environment variable names for runtime settings.
const (
	EnvPatientIDPattern    = "PATIENT_ID_PATTERN"
	EnvMaxTurnIterations   = "MAX_TURN_ITERATIONS"
	EnvTurnDeadlineSeconds = "TURN_DEADLINE_SECONDS"
	EnvClearCommands       = "CLEAR_COMMANDS"
	EnvAgentsConfigPath    = "AGENTS_CONFIG_PATH"
	EnvStorageURL          = "STORAGE_URL"
	EnvListenAddr          = "LISTEN_ADDR"
	EnvLogLevel            = "LOG_LEVEL"
)

// Defaults for runtime settings.
const (
	DefaultPatientIDPattern  = `^patient_[0-9]+$`
	DefaultMaxTurnIterations = 30
	DefaultTurnDeadline      = 120 * time.Second
	DefaultAgentsConfigPath  = "config/agents.yaml"
	DefaultListenAddr        = ":8080"
)

// DefaultClearCommands archive the conversation when received verbatim.
var DefaultClearCommands = []string{"clear", "clear patient", "clear context", "clear patient context"}

// Settings are the runtime options of the orchestrator, read from the
// environment with sensible defaults.
type Settings struct {
	PatientIDPattern  *regexp.Regexp
	MaxTurnIterations int
	TurnDeadline      time.Duration
	ClearCommands     map[string]bool
	AgentsConfigPath  string
	StorageURL        string
	ListenAddr        string
	LogLevel          string
}

// SettingsFromEnv reads Settings from the environment.
func SettingsFromEnv() (*Settings, error) {
	settings := &Settings{
		MaxTurnIterations: DefaultMaxTurnIterations,
		TurnDeadline:      DefaultTurnDeadline,
		ClearCommands:     clearCommandSet(DefaultClearCommands),
		AgentsConfigPath:  DefaultAgentsConfigPath,
		ListenAddr:        DefaultListenAddr,
		LogLevel:          "info",
	}

	patternText := envOr(EnvPatientIDPattern, DefaultPatientIDPattern)
	pattern, err := regexp.Compile(patternText)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvPatientIDPattern, patternText, err)
	}
	settings.PatientIDPattern = pattern

	if value := os.Getenv(EnvMaxTurnIterations); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s %q", EnvMaxTurnIterations, value)
		}
		settings.MaxTurnIterations = n
	}
	if value := os.Getenv(EnvTurnDeadlineSeconds); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s %q", EnvTurnDeadlineSeconds, value)
		}
		settings.TurnDeadline = time.Duration(n) * time.Second
	}
	if value := os.Getenv(EnvClearCommands); value != "" {
		settings.ClearCommands = clearCommandSet(strings.Split(value, ","))
	}
	if value := os.Getenv(EnvAgentsConfigPath); value != "" {
		settings.AgentsConfigPath = value
	}
	if value := os.Getenv(EnvListenAddr); value != "" {
		settings.ListenAddr = value
	}
	if value := os.Getenv(EnvLogLevel); value != "" {
		settings.LogLevel = value
	}

	settings.StorageURL = os.Getenv(EnvStorageURL)
	if settings.StorageURL == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default storage location: %w", err)
		}
		settings.StorageURL = "file://localhost" + filepath.Join(home, ".careboard", "conversations")
	}

	return settings, nil
}

// IsClearCommand reports whether text is a clear command (case-insensitive,
// trimmed).
func (s *Settings) IsClearCommand(text string) bool {
	return s.ClearCommands[strings.ToLower(strings.TrimSpace(text))]
}

func clearCommandSet(commands []string) map[string]bool {
	set := make(map[string]bool, len(commands))
	for _, command := range commands {
		command = strings.ToLower(strings.TrimSpace(command))
		if command != "" {
			set[command] = true
		}
	}
	return set
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
