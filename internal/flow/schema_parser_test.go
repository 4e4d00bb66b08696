package flow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/formdesk/formdesk/internal/models"
)

func TestParseStrictSpec(t *testing.T) {
	got := parseStrictSpec("submit_label:Send Request, name:text:required, status:select(pending;approved), notes")
	want := &models.FieldSchema{
		Title:       "Custom Form",
		SubmitLabel: "Send Request",
		Fields: []models.FieldDef{
			{Key: "name", Label: "Name", Type: models.FieldTypeText, Required: true},
			{Key: "status", Label: "Status", Type: models.FieldTypeSelect, Options: []string{"pending", "approved"}},
			{Key: "notes", Label: "Notes", Type: models.FieldTypeText},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseStrictSpec mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStrictSpecRejectsUnknownType(t *testing.T) {
	if got := parseStrictSpec("name:text, age:integer"); got != nil {
		t.Errorf("parseStrictSpec with unknown type = %+v, want nil", got)
	}
}

func TestParseNaturalLanguageSpec(t *testing.T) {
	spec := "Email address (email, required), Department as a dropdown with IT, HR, Finance. " +
		"The submit label should be Apply"
	got := parseNaturalLanguageSpec(spec)
	if got == nil {
		t.Fatal("parseNaturalLanguageSpec returned nil")
	}
	want := &models.FieldSchema{
		Title:       "Custom Form",
		SubmitLabel: "Apply",
		Fields: []models.FieldDef{
			{Key: "email_address", Label: "Email Address", Type: models.FieldTypeEmail, Required: true},
			{Key: "department", Label: "Department", Type: models.FieldTypeSelect, Options: []string{"IT", "HR", "Finance"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseNaturalLanguageSpec mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNaturalLanguageSpecYesNo(t *testing.T) {
	got := parseNaturalLanguageSpec("Subscribe to updates checkbox")
	if got == nil {
		t.Fatal("parseNaturalLanguageSpec returned nil")
	}
	if len(got.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(got.Fields))
	}
	field := got.Fields[0]
	if field.Type != models.FieldTypeRadio {
		t.Errorf("lone checkbox type = %s, want radio", field.Type)
	}
	if diff := cmp.Diff([]string{"Yes", "No"}, field.Options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNaturalLanguageSpecFiscalYear(t *testing.T) {
	got := parseNaturalLanguageSpec("Fiscal year dropdown")
	if got == nil || len(got.Fields) != 1 {
		t.Fatalf("got %+v, want one field", got)
	}
	year := time.Now().Year()
	want := []string{
		fmt.Sprintf("FY%d", year-1),
		fmt.Sprintf("FY%d", year),
		fmt.Sprintf("FY%d", year+1),
	}
	if diff := cmp.Diff(want, got.Fields[0].Options); diff != "" {
		t.Errorf("fiscal year options mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSchemaFallsThroughWithoutGenAI(t *testing.T) {
	sb := NewSchemaBuilder(nil)
	got := sb.BuildSchema(context.Background(), "Full name (text, required) and Start date (date)")
	if got == nil {
		t.Fatal("BuildSchema returned nil")
	}
	if len(got.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(got.Fields))
	}
	if got.Fields[0].Key != "full_name" || !got.Fields[0].Required {
		t.Errorf("first field = %+v, want required full_name", got.Fields[0])
	}
	if got.Fields[1].Type != models.FieldTypeDate {
		t.Errorf("second field type = %s, want date", got.Fields[1].Type)
	}
}

func TestBuildSchemaEmptySpec(t *testing.T) {
	sb := NewSchemaBuilder(nil)
	if got := sb.BuildSchema(context.Background(), "   "); got != nil {
		t.Errorf("BuildSchema on blank spec = %+v, want nil", got)
	}
}
