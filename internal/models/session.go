// Package models defines session state structures for FormDesk conversations.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sentinel cursor values.
const (
	// NoFieldAsked indicates no field prompt has been emitted yet.
	NoFieldAsked = -1
	// NoPendingField indicates no field value is awaiting confirmation.
	NoPendingField = -1
)

// SessionPhase is the single enumerated phase a session is in, derived
// deterministically from the session flags. Both the prompt emitter and the
// input processor switch on this value instead of re-checking flag priority.
type SessionPhase string

const (
	// PhaseGreeting is the first-ever turn before the greeting was sent.
	PhaseGreeting SessionPhase = "GREETING"
	// PhaseSelectingForm means no schema is set and no build is in progress.
	PhaseSelectingForm SessionPhase = "SELECTING_FORM"
	// PhaseBuildingSchema means a custom schema is being specified from text.
	PhaseBuildingSchema SessionPhase = "BUILDING_SCHEMA"
	// PhaseReviewingSchema means a schema is set but not yet confirmed.
	PhaseReviewingSchema SessionPhase = "REVIEWING_SCHEMA"
	// PhaseAwaitingConfirmation means a suggested field value needs a yes/no.
	PhaseAwaitingConfirmation SessionPhase = "AWAITING_CONFIRMATION"
	// PhaseCollectingField means the cursor field is being collected.
	PhaseCollectingField SessionPhase = "COLLECTING_FIELD"
	// PhaseDone means every active field has a committed value.
	PhaseDone SessionPhase = "DONE"
)

// SessionState is the per-thread conversation record. It is owned exclusively
// by the turn orchestrator and persisted verbatim in the checkpoint store
// between turns. PendingUserText is a single-turn scratch slot and is always
// cleared before persistence.
type SessionState struct {
	ThreadID string `json:"thread_id"`

	// Collected form values, keyed by field key. Every committed value is
	// normalizer output, never raw user text.
	FormValues map[string]string `json:"form_values"`

	// FieldCursor indexes the field currently being collected within the
	// active field list; reaching len(fields) is the terminal condition.
	FieldCursor int `json:"field_cursor"`
	// AskedCursor is the last field index for which a prompt was actually
	// emitted (NoFieldAsked sentinel). Guards against duplicate prompts.
	AskedCursor int `json:"asked_cursor"`

	// PendingUserText holds the latest user utterance for the current turn.
	PendingUserText string `json:"pending_user_text,omitempty"`

	// Suggested-value confirmation sub-state.
	AwaitingConfirmation bool   `json:"awaiting_confirmation"`
	PendingFieldIndex    int    `json:"pending_field_index"`
	PendingValue         string `json:"pending_value,omitempty"`

	// Schema selection and review.
	Schema                *FieldSchema      `json:"schema,omitempty"`
	FormType              string            `json:"form_type,omitempty"`
	SchemaConfirmed       bool              `json:"schema_confirmed"`
	Theme                 map[string]string `json:"theme,omitempty"`
	SchemaBuildMode       bool              `json:"schema_build_mode"`
	SchemaDraft           string            `json:"schema_draft,omitempty"` // accumulated free-text specification
	ProposedFormType      string            `json:"proposed_form_type,omitempty"`
	AwaitingSchemaChanges bool              `json:"awaiting_schema_changes"`
	Greeted               bool              `json:"greeted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState constructs a session with invariant-preserving defaults.
// Every load path goes through here; sessions are never partially initialized.
func NewSessionState(threadID string) *SessionState {
	now := time.Now()
	return &SessionState{
		ThreadID:          threadID,
		FormValues:        make(map[string]string),
		FieldCursor:       0,
		AskedCursor:       NoFieldAsked,
		PendingFieldIndex: NoPendingField,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// EnsureDefaults repairs zero-valued fields on a session loaded from a
// checkpoint written by an older version. Fields not present on load take
// the NewSessionState defaults.
func (s *SessionState) EnsureDefaults() {
	if s.FormValues == nil {
		s.FormValues = make(map[string]string)
	}
	if s.AskedCursor == 0 && s.FieldCursor == 0 && len(s.FormValues) == 0 && !s.Greeted {
		s.AskedCursor = NoFieldAsked
	}
	if !s.AwaitingConfirmation && s.PendingFieldIndex == 0 {
		s.PendingFieldIndex = NoPendingField
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
}

// Phase derives the single active phase from the session flags. activeFieldCount
// is the length of the active field list (schema fields, or the default list
// when no schema applies).
func (s *SessionState) Phase(activeFieldCount int) SessionPhase {
	switch {
	case !s.Greeted:
		return PhaseGreeting
	case s.AwaitingConfirmation:
		return PhaseAwaitingConfirmation
	case s.Schema == nil && s.SchemaBuildMode:
		return PhaseBuildingSchema
	case s.Schema == nil:
		return PhaseSelectingForm
	case !s.SchemaConfirmed:
		return PhaseReviewingSchema
	case s.FieldCursor >= activeFieldCount:
		return PhaseDone
	default:
		return PhaseCollectingField
	}
}

// ClearPending resets the suggested-value confirmation sub-state.
func (s *SessionState) ClearPending() {
	s.AwaitingConfirmation = false
	s.PendingFieldIndex = NoPendingField
	s.PendingValue = ""
}

// ToJSON serializes the session state to a JSON string.
func (s *SessionState) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session state: %w", err)
	}
	return string(data), nil
}

// FromJSON deserializes session state from a JSON string.
func (s *SessionState) FromJSON(jsonStr string) error {
	if err := json.Unmarshal([]byte(jsonStr), s); err != nil {
		return fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	s.EnsureDefaults()
	return nil
}
