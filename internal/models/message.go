// Package models defines conversation message structures for FormDesk.
package models

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	// RoleUser marks a message authored by the participant.
	RoleUser MessageRole = "user"
	// RoleAssistant marks a message authored by the agent.
	RoleAssistant MessageRole = "assistant"
)

// Message is the normalized conversation message used throughout the core.
// Heterogeneous transport representations are converted to this form at
// ingress; internal logic never sees anything else.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NormalizeRole maps the role spellings seen on the wire onto the internal
// tagged union. LangChain-style "human"/"ai" spellings are accepted alongside
// the plain ones. Unknown roles return an empty MessageRole.
func NormalizeRole(raw string) MessageRole {
	switch raw {
	case "user", "human":
		return RoleUser
	case "assistant", "ai":
		return RoleAssistant
	default:
		return ""
	}
}

// AssistantMessage builds an assistant-authored message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// UserMessage builds a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
