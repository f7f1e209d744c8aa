// Package patientctx decides which patient a conversation is about and
// applies the resulting state transitions to the roster and registry.
package patientctx

import "time"

// Action is the analyzer's classification of the user's intent.
type Action string

const (
	ActionNone           Action = "NONE"
	ActionClear          Action = "CLEAR"
	ActionActivateNew    Action = "ACTIVATE_NEW"
	ActionSwitchExisting Action = "SWITCH_EXISTING"
	ActionUnchanged      Action = "UNCHANGED"
)

// Decision is the structured output of the analyzer.
type Decision struct {
	Action    Action `json:"action"`
	PatientID string `json:"patient_id"`
	Reasoning string `json:"reasoning"`
}

// Result is the service-level decision after validation and state
// transitions.
type Result string

const (
	ResultNone           Result = "NONE"
	ResultUnchanged      Result = "UNCHANGED"
	ResultNewBlank       Result = "NEW_BLANK"
	ResultSwitchExisting Result = "SWITCH_EXISTING"
	ResultClear          Result = "CLEAR"
	ResultRestored       Result = "RESTORED_FROM_STORAGE"
	ResultNeedsPatientID Result = "NEEDS_PATIENT_ID"
)

// TimingInfo breaks down where a DecideAndApply call spent its time.
type TimingInfo struct {
	Analyzer        time.Duration
	StorageFallback time.Duration
	Service         time.Duration
}
