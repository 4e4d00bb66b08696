package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/formdesk/formdesk/internal/catalog"
	"github.com/formdesk/formdesk/internal/models"
	"github.com/formdesk/formdesk/internal/store"
	"github.com/formdesk/formdesk/internal/testutil"
)

func TestBuildSchemaPrefersGenAIResult(t *testing.T) {
	client := testutil.NewMockGenAIClient(
		`{"title": "Travel Request", "fields": [{"key": "Destination City", "label": "", "type": "text", "required": true}]}`)
	sb := NewSchemaBuilder(client)

	got := sb.BuildSchema(context.Background(), "a travel request form")
	if got == nil {
		t.Fatal("BuildSchema returned nil")
	}
	if got.Title != "Travel Request" {
		t.Errorf("title = %q, want Travel Request", got.Title)
	}
	if len(got.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(got.Fields))
	}
	// Inferred keys are repaired to snake_case with a humanized label.
	if got.Fields[0].Key != "destination_city" {
		t.Errorf("key = %q, want destination_city", got.Fields[0].Key)
	}
	if got.Fields[0].Label != "Destination City" {
		t.Errorf("label = %q, want Destination City", got.Fields[0].Label)
	}
}

func TestBuildSchemaFallsBackOnServiceError(t *testing.T) {
	client := testutil.NewMockGenAIClient()
	client.Err = errors.New("rate limited")
	sb := NewSchemaBuilder(client)

	got := sb.BuildSchema(context.Background(), "Full name (text, required)")
	if got == nil || len(got.Fields) != 1 {
		t.Fatalf("heuristic fallback schema = %+v, want 1 field", got)
	}
}

func TestClassifyReviewIntentUsesGenAIToken(t *testing.T) {
	client := testutil.NewMockGenAIClient("CHANGE")
	if got := ClassifyReviewIntent(context.Background(), client, "hmm"); got != ReviewIntentChange {
		t.Errorf("intent = %s, want %s", got, ReviewIntentChange)
	}
}

func TestClassifyReviewIntentRejectsUnexpectedToken(t *testing.T) {
	client := testutil.NewMockGenAIClient("MAYBE SO")
	// The unexpected token falls through to the heuristic patterns.
	if got := ClassifyReviewIntent(context.Background(), client, "looks good"); got != ReviewIntentYes {
		t.Errorf("intent = %s, want %s", got, ReviewIntentYes)
	}
}

func TestSuggestUsesExtractedValue(t *testing.T) {
	client := testutil.NewMockGenAIClient("John.Doe@Example.com")
	vs := NewValueSuggester(client, catalog.DefaultKnowledge())

	field := models.FieldDef{Key: "email", Label: "Email Address", Type: models.FieldTypeEmail}
	got := vs.Suggest(context.Background(), field, "my work address is john doe at example dot com")
	if got != "john.doe@example.com" {
		t.Errorf("Suggest = %q, want john.doe@example.com", got)
	}
	if client.CallCount() != 1 {
		t.Errorf("extraction calls = %d, want 1", client.CallCount())
	}
}

func TestHandleTurnGeneratedAcknowledgement(t *testing.T) {
	// Scripted responses cover, in order: the review/extraction calls do not
	// happen here; the first GeneratePrompt is the name extraction and the
	// second is the commit acknowledgement.
	client := testutil.NewMockGenAIClient("Jane Doe", "Got it, thanks Jane!")
	sessions := NewStoreBasedSessionManager(store.NewInMemoryStore())
	o := NewOrchestrator(sessions, client, nil, nil)

	turn(t, o, "t1", "hi")
	turn(t, o, "t1", "service request")
	turn(t, o, "t1", "it's jane doe")

	replies, _ := turn(t, o, "t1", "yes")
	requireReplyContaining(t, replies, "Got it, thanks Jane!")
}
