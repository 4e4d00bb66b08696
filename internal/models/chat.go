package models

import "errors"

// Request validation errors.
var (
	ErrMissingThreadID = errors.New("thread_id is required")
	ErrEmptyTurn       = errors.New("either message or messages must be provided")
)

// ChatRespondRequest is the body of POST /api/chat/respond. Clients may send
// a full message transcript or a single message string; Messages wins when
// both are present.
type ChatRespondRequest struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// Validate checks the respond request for the required parts.
func (r *ChatRespondRequest) Validate() error {
	if r.ThreadID == "" {
		return ErrMissingThreadID
	}
	if len(r.Messages) == 0 && r.Message == "" {
		return ErrEmptyTurn
	}
	return nil
}

// Turn normalizes the request body into the message list consumed by the
// conversation engine.
func (r *ChatRespondRequest) Turn() []Message {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	return []Message{UserMessage(r.Message)}
}

// ChatTurnResponse is the result payload for chat start and respond calls.
type ChatTurnResponse struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
	Phase    string    `json:"phase"`
	Complete bool      `json:"complete"`
}

// ThreadList is the result payload for GET /api/chat/threads.
type ThreadList struct {
	Threads []string `json:"threads"`
}

// FormSnapshot is the result payload for GET /api/chat/{id}/form: everything
// a client needs to render the form in its current state.
type FormSnapshot struct {
	ThreadID string            `json:"thread_id"`
	FormType string            `json:"form_type,omitempty"`
	Schema   *FieldSchema      `json:"schema,omitempty"`
	Values   map[string]string `json:"values"`
	Theme    map[string]string `json:"theme,omitempty"`
	Complete bool              `json:"complete"`
}
