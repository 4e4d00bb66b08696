// Package testutil provides common test doubles and helpers for FormDesk tests.
package testutil

import (
	"context"
	"sync"
)

// PromptCall records one GeneratePrompt invocation on the mock client.
type PromptCall struct {
	SystemPrompt string
	UserPrompt   string
}

// MockGenAIClient is a scripted genai.ClientInterface implementation. Each
// call pops the next queued response; when the queue is exhausted the last
// response repeats. A non-nil Err fails every call.
type MockGenAIClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	Calls []PromptCall
	next  int
}

// NewMockGenAIClient creates a mock client with the given scripted responses.
func NewMockGenAIClient(responses ...string) *MockGenAIClient {
	return &MockGenAIClient{Responses: responses}
}

// GeneratePrompt returns the next scripted response and records the call.
func (m *MockGenAIClient) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, PromptCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	return m.nextResponse()
}

func (m *MockGenAIClient) nextResponse() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	resp := m.Responses[m.next]
	if m.next < len(m.Responses)-1 {
		m.next++
	}
	return resp, nil
}

// CallCount returns the number of recorded GeneratePrompt calls.
func (m *MockGenAIClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
