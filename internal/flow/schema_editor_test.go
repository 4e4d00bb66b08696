package flow

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/formdesk/formdesk/internal/models"
)

func reviewSession() *models.SessionState {
	s := models.NewSessionState("t1")
	s.Greeted = true
	s.Schema = &models.FieldSchema{
		Title: "Custom Form",
		Fields: []models.FieldDef{
			{Key: "name", Label: "Full Name", Type: models.FieldTypeText, Required: true},
			{Key: "email", Label: "Email Address", Type: models.FieldTypeEmail, Required: true},
		},
	}
	return s
}

func TestApplyEditCommandAddField(t *testing.T) {
	s := reviewSession()
	if !ApplyEditCommand(s, "add field budget:number:required") {
		t.Fatal("add field command not applied")
	}
	want := models.FieldDef{Key: "budget", Label: "Budget", Type: models.FieldTypeNumber, Required: true}
	got := s.Schema.Fields[len(s.Schema.Fields)-1]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("added field mismatch (-want +got):\n%s", diff)
	}

	// A duplicate key is rejected without touching the schema.
	if ApplyEditCommand(s, "add field budget") {
		t.Error("duplicate add field reported as applied")
	}
	if len(s.Schema.Fields) != 3 {
		t.Errorf("field count = %d, want 3", len(s.Schema.Fields))
	}
}

func TestApplyEditCommandAddFieldBadType(t *testing.T) {
	s := reviewSession()
	if ApplyEditCommand(s, "add field age:integer") {
		t.Error("invalid type reported as applied")
	}
	if len(s.Schema.Fields) != 2 {
		t.Errorf("field count = %d, want 2", len(s.Schema.Fields))
	}
}

func TestApplyEditCommandRemoveField(t *testing.T) {
	s := reviewSession()

	// Removal matches by label as well as by key.
	if !ApplyEditCommand(s, "remove field Email Address") {
		t.Fatal("remove field command not applied")
	}
	if s.Schema.FieldByKey("email") != nil {
		t.Error("email field still present after removal")
	}

	// Removing an absent field is still a successful no-op.
	if !ApplyEditCommand(s, "remove field email") {
		t.Error("absent-field removal reported as not applied")
	}
	if len(s.Schema.Fields) != 1 {
		t.Errorf("field count = %d, want 1", len(s.Schema.Fields))
	}
}

func TestApplyEditCommandTheme(t *testing.T) {
	s := reviewSession()
	if !ApplyEditCommand(s, `theme {"primary": "#0d6efd", "background": "#ffffff"}`) {
		t.Fatal("theme command not applied")
	}
	want := map[string]string{"primary": "#0d6efd", "background": "#ffffff"}
	if diff := cmp.Diff(want, s.Theme); diff != "" {
		t.Errorf("theme mismatch (-want +got):\n%s", diff)
	}

	if ApplyEditCommand(s, "theme not json at all") {
		t.Error("malformed theme reported as applied")
	}
}

func TestApplyEditCommandWithoutSchema(t *testing.T) {
	s := models.NewSessionState("t1")
	if ApplyEditCommand(s, "add field budget") {
		t.Error("edit applied with no schema present")
	}
}
