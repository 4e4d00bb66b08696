// Package flow implements the FormDesk conversation engine.
//
// This file holds the fixed outbound message texts and the built-in default
// field list used when no schema applies.
package flow

import (
	"fmt"
	"strings"

	"github.com/formdesk/formdesk/internal/catalog"
	"github.com/formdesk/formdesk/internal/models"
)

// Fixed message texts.
const (
	// CompletionMessage is emitted on every turn of a completed session.
	CompletionMessage = "Thank you. All required details have been collected."

	// schemaHelpText is emitted while a custom schema is being specified.
	schemaHelpText = "Describe the fields for your form. You can write them naturally " +
		"(e.g. \"Email address (email, required), Department as a dropdown with IT, HR, Finance\") " +
		"or as tokens (e.g. \"name:text:required, status:select(pending,approved)\"). " +
		"You can also set the submit label, e.g. \"submit label should be Send\"."

	// editHelpText is emitted when the user asks to change an unconfirmed schema.
	editHelpText = "You can edit the form with:\n" +
		"- add field <key>[:<type>[:required]]\n" +
		"- remove field <name>\n" +
		"- theme {\"primary\": \"#0d6efd\", ...}\n" +
		"Reply 'yes' when the form looks right."
)

// defaultFieldPrompts pairs the built-in default field list with its prompts,
// used when a session has no schema.
var defaultFieldPrompts = []struct {
	Field  models.FieldDef
	Prompt string
}{
	{models.FieldDef{Key: "name", Label: "Full Name", Type: models.FieldTypeText, Required: true}, "Please provide your full name."},
	{models.FieldDef{Key: "email", Label: "Email Address", Type: models.FieldTypeEmail, Required: true}, "What is your email address?"},
	{models.FieldDef{Key: "issue_details", Label: "Issue Details", Type: models.FieldTypeTextarea, Required: true}, "Describe the issue in detail."},
	{models.FieldDef{Key: "type", Label: "Request Type", Type: models.FieldTypeSelect, Required: true, Options: []string{"incident", "service", "access"}}, "What type of request is this? (e.g., incident, service, access)"},
	{models.FieldDef{Key: "urgency", Label: "Urgency", Type: models.FieldTypeSelect, Required: true, Options: []string{"low", "medium", "high", "critical"}}, "What is the urgency? (low, medium, high, critical)"},
	{models.FieldDef{Key: "location", Label: "Location", Type: models.FieldTypeRadio, Required: true, Options: []string{"office", "site", "remote"}}, "Where is the issue located? (office/site/remote)"},
}

// defaultFields returns the built-in field list.
func defaultFields() []models.FieldDef {
	fields := make([]models.FieldDef, len(defaultFieldPrompts))
	for i, fp := range defaultFieldPrompts {
		fields[i] = fp.Field
	}
	return fields
}

// greetingMessage lists the available predefined forms.
func greetingMessage(cat *catalog.Catalog) string {
	var sb strings.Builder
	sb.WriteString("Hello! I can help you fill out a form. Available forms:\n")
	for _, form := range cat.Forms() {
		fmt.Fprintf(&sb, "- %s\n", form.Title)
	}
	sb.WriteString("Pick one, or describe a custom form and I will build it with you.")
	return sb.String()
}

// formChoicePrompt asks which form to fill out.
func formChoicePrompt(cat *catalog.Catalog) string {
	names := make([]string, 0, len(cat.Forms()))
	for _, form := range cat.Forms() {
		names = append(names, form.Title)
	}
	return fmt.Sprintf("Which form would you like to fill out? (%s) You can also describe a custom form.",
		strings.Join(names, ", "))
}

// defaultPrompts returns the fixed prompts for the built-in field list.
func defaultPrompts() map[string]string {
	prompts := make(map[string]string, len(defaultFieldPrompts))
	for _, fp := range defaultFieldPrompts {
		prompts[fp.Field.Key] = fp.Prompt
	}
	return prompts
}

// fieldPrompt renders the question for one field. prompts holds per-key
// overrides (catalog form prompts or the default-list prompts) and may be nil.
func fieldPrompt(field models.FieldDef, prompts map[string]string) string {
	if p, ok := prompts[field.Key]; ok && p != "" {
		return p
	}
	if len(field.Options) > 0 {
		return fmt.Sprintf("%s? (%s)", field.Label, strings.Join(field.Options, "/"))
	}
	return fmt.Sprintf("Please provide: %s.", field.Label)
}

// confirmValuePrompt renders the suggested-value confirmation question.
func confirmValuePrompt(field models.FieldDef, value string) string {
	return fmt.Sprintf("I understood %s as %q. Is that right? (yes/no, or send a correction)", field.Label, value)
}

// schemaPreview renders the current field list as a bulleted preview with
// free-form edit instructions.
func schemaPreview(schema *models.FieldSchema) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is the %s form:\n", schema.Title)
	for _, f := range schema.Fields {
		fmt.Fprintf(&sb, "- %s (%s", f.Label, f.Type)
		if f.Required {
			sb.WriteString(", required")
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(&sb, ": %s", strings.Join(f.Options, ", "))
		}
		sb.WriteString(")\n")
	}
	if schema.SubmitLabel != "" {
		fmt.Fprintf(&sb, "Submit button: %s\n", schema.SubmitLabel)
	}
	sb.WriteString("Reply 'yes' to start, or tell me what to change.")
	return sb.String()
}

// recordedAckFallback is the fixed acknowledgement when no GenAI is available.
func recordedAckFallback(fieldKey string) string {
	return fmt.Sprintf("Recorded %s.", fieldKey)
}
