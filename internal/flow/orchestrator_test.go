package flow

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/formdesk/formdesk/internal/models"
	"github.com/formdesk/formdesk/internal/store"
)

func newTestOrchestrator() *Orchestrator {
	sessions := NewStoreBasedSessionManager(store.NewInMemoryStore())
	return NewOrchestrator(sessions, nil, nil, nil)
}

// turn sends one user message and returns the assistant replies and session.
func turn(t *testing.T, o *Orchestrator, threadID, text string) ([]models.Message, *models.SessionState) {
	t.Helper()
	var incoming []models.Message
	if text != "" {
		incoming = []models.Message{models.UserMessage(text)}
	}
	replies, session, err := o.HandleTurn(context.Background(), threadID, incoming)
	if err != nil {
		t.Fatalf("HandleTurn(%q) failed: %v", text, err)
	}
	return replies, session
}

func requireReplyContaining(t *testing.T, replies []models.Message, substr string) {
	t.Helper()
	for _, m := range replies {
		if strings.Contains(m.Content, substr) {
			return
		}
	}
	t.Fatalf("no reply contains %q; replies: %+v", substr, replies)
}

func TestHandleTurnGreetsFirst(t *testing.T) {
	o := newTestOrchestrator()
	replies, session := turn(t, o, "t1", "hello there")

	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	requireReplyContaining(t, replies, "Available forms")
	if !session.Greeted {
		t.Error("session not marked greeted")
	}
	// The first utterance is not consumed as an answer.
	if len(session.FormValues) != 0 {
		t.Errorf("form values populated on greeting turn: %+v", session.FormValues)
	}
}

func TestHandleTurnPredefinedFormFlow(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")

	replies, session := turn(t, o, "t1", "I'd like to open a service request")
	requireReplyContaining(t, replies, "Service Request")
	requireReplyContaining(t, replies, "Please provide your full name.")
	if !session.SchemaConfirmed {
		t.Error("predefined form not auto-confirmed")
	}
	if session.FormType != "service_request" {
		t.Errorf("form type = %q, want service_request", session.FormType)
	}

	replies, session = turn(t, o, "t1", "my name is john smith")
	requireReplyContaining(t, replies, `"John Smith"`)
	if !session.AwaitingConfirmation {
		t.Error("not awaiting confirmation after suggestion")
	}
	if session.FormValues["name"] != "John Smith" {
		t.Errorf("optimistic value = %q, want John Smith", session.FormValues["name"])
	}

	replies, session = turn(t, o, "t1", "yes")
	requireReplyContaining(t, replies, "Recorded name.")
	requireReplyContaining(t, replies, "What is your email address?")
	if session.AwaitingConfirmation {
		t.Error("still awaiting confirmation after commit")
	}
	if session.FieldCursor != 1 {
		t.Errorf("field cursor = %d, want 1", session.FieldCursor)
	}
}

func TestHandleTurnRejectionReasks(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "service request")
	turn(t, o, "t1", "Jane Doe")

	replies, session := turn(t, o, "t1", "no")
	requireReplyContaining(t, replies, "Please provide your full name.")
	if _, ok := session.FormValues["name"]; ok {
		t.Error("rejected value still present")
	}
	if session.AwaitingConfirmation {
		t.Error("still awaiting confirmation after rejection")
	}
	if session.FieldCursor != 0 {
		t.Errorf("field cursor = %d, want 0", session.FieldCursor)
	}
}

func TestHandleTurnCorrectionReplacesValue(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "service request")
	turn(t, o, "t1", "Jane Doe")
	turn(t, o, "t1", "yes")
	// Now collecting email.
	turn(t, o, "t1", "bob@example.com")

	replies, session := turn(t, o, "t1", "robert@example.com")
	requireReplyContaining(t, replies, `"robert@example.com"`)
	if session.FormValues["email"] != "robert@example.com" {
		t.Errorf("corrected value = %q, want robert@example.com", session.FormValues["email"])
	}
	if !session.AwaitingConfirmation {
		t.Error("correction should keep the confirmation pending")
	}
}

func TestHandleTurnCompletesDefaultServiceRequest(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "service request")

	answers := []string{
		"my name is ada lovelace",
		"ada@example.org",
		"the vpn drops every hour",
		"it's broken",
		"pretty urgent",
		"working from home",
	}
	var replies []models.Message
	var session *models.SessionState
	for _, answer := range answers {
		turn(t, o, "t1", answer)
		replies, session = turn(t, o, "t1", "yes")
	}

	requireReplyContaining(t, replies, CompletionMessage)
	want := map[string]string{
		"name":          "Ada Lovelace",
		"email":         "ada@example.org",
		"issue_details": "the vpn drops every hour",
		"type":          "incident",
		"urgency":       "high",
		"location":      "remote",
	}
	for key, value := range want {
		if session.FormValues[key] != value {
			t.Errorf("FormValues[%q] = %q, want %q", key, session.FormValues[key], value)
		}
	}
	if got := session.Phase(6); got != models.PhaseDone {
		t.Errorf("phase = %s, want %s", got, models.PhaseDone)
	}
}

func TestHandleTurnDoesNotRepeatPrompt(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "service request")

	// A re-delivered turn with no new user input emits nothing.
	replies, _ := turn(t, o, "t1", "")
	if len(replies) != 0 {
		t.Errorf("got %d replies on empty redelivery, want 0: %+v", len(replies), replies)
	}
}

func TestHandleTurnCustomSchemaFlow(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")

	replies, session := turn(t, o, "t1", "I want to build a custom form")
	requireReplyContaining(t, replies, "Describe the fields")
	if !session.SchemaBuildMode {
		t.Error("session not in schema build mode")
	}

	replies, session = turn(t, o, "t1", "Full name (text, required) and Start date (date)")
	requireReplyContaining(t, replies, "Full Name")
	requireReplyContaining(t, replies, "Start Date")
	if session.Schema == nil || len(session.Schema.Fields) != 2 {
		t.Fatalf("schema = %+v, want 2 fields", session.Schema)
	}
	if session.SchemaConfirmed {
		t.Error("synthesized schema should not be auto-confirmed")
	}

	// An edit command during review mutates the schema and re-previews.
	replies, session = turn(t, o, "t1", "add field budget:number:required")
	requireReplyContaining(t, replies, "Budget")
	if session.Schema.FieldByKey("budget") == nil {
		t.Fatal("budget field missing after edit")
	}

	replies, session = turn(t, o, "t1", "looks good, go ahead")
	requireReplyContaining(t, replies, "Please provide: Full Name.")
	if !session.SchemaConfirmed {
		t.Error("schema not confirmed after review approval")
	}
}

func TestHandleTurnSpecSniffingSkipsSelection(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")

	replies, session := turn(t, o, "t1", "name:text:required, email:email:required")
	requireReplyContaining(t, replies, "Reply 'yes' to start")
	if session.Schema == nil || len(session.Schema.Fields) != 2 {
		t.Fatalf("schema = %+v, want 2 fields", session.Schema)
	}
	if session.Schema.Fields[1].Type != models.FieldTypeEmail {
		t.Errorf("second field type = %s, want email", session.Schema.Fields[1].Type)
	}
}

func TestHandleTurnRestatesCompletion(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "service request")

	answers := []string{
		"ada lovelace",
		"ada@example.org",
		"the vpn drops every hour",
		"incident",
		"high",
		"remote",
	}
	for _, answer := range answers {
		turn(t, o, "t1", answer)
		turn(t, o, "t1", "yes")
	}

	// The session stays open; every later turn restates completion.
	replies, _ := turn(t, o, "t1", "is there anything else?")
	requireReplyContaining(t, replies, CompletionMessage)

	replies, _ = turn(t, o, "t1", "")
	requireReplyContaining(t, replies, CompletionMessage)
}

func TestHandleTurnReviewChangeRequestClearsFlag(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "I want to build a custom form")
	turn(t, o, "t1", "Full name (text, required) and Start date (date)")

	replies, session := turn(t, o, "t1", "I want to make changes")
	requireReplyContaining(t, replies, "You can edit the form with")
	if session.AwaitingSchemaChanges {
		t.Error("flag still set after edit help was emitted")
	}

	// The next input-less turn restates the preview, not the edit help.
	replies, _ = turn(t, o, "t1", "")
	requireReplyContaining(t, replies, "Reply 'yes' to start")
}

func TestHandleTurnReviewIgnoresMalformedEdit(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "I want to build a custom form")
	turn(t, o, "t1", "Full name (text, required) and Start date (date)")

	replies, session := turn(t, o, "t1", "what is this?")
	requireReplyContaining(t, replies, "Reply 'yes' to start")
	for _, m := range replies {
		if strings.Contains(m.Content, "didn't catch") {
			t.Errorf("malformed edit drew a complaint: %q", m.Content)
		}
	}
	if session.SchemaConfirmed {
		t.Error("malformed edit must not confirm the schema")
	}
}

func TestSanitizeInputTruncatesAtRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", maxInputLen-1) + "日本"
	got := sanitizeInput(long)
	if len(got) != maxInputLen-1 {
		t.Errorf("len = %d, want %d", len(got), maxInputLen-1)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated input is not valid UTF-8")
	}
}

func TestHandleTurnUnknownFormReprompts(t *testing.T) {
	o := newTestOrchestrator()
	turn(t, o, "t1", "hi")

	replies, session := turn(t, o, "t1", "the weather is nice")
	requireReplyContaining(t, replies, "Which form would you like to fill out?")
	if session.Schema != nil {
		t.Errorf("schema set from unrelated text: %+v", session.Schema)
	}
}
