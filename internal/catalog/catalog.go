// Package catalog provides the predefined forms catalog and the field
// knowledge base consumed by the conversation flow.
//
// Both are static data sources: built-in defaults ship with the binary and
// can be replaced wholesale by YAML files at startup.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/formdesk/formdesk/internal/models"
	"gopkg.in/yaml.v3"
)

// FormDefinition describes one predefined form in the catalog.
type FormDefinition struct {
	Key      string            `yaml:"key" json:"key"`
	Title    string            `yaml:"title" json:"title"`
	Synonyms []string          `yaml:"synonyms" json:"synonyms"`
	Fields   []models.FieldDef `yaml:"fields" json:"fields"`
	Prompts  map[string]string `yaml:"prompts,omitempty" json:"prompts,omitempty"` // optional per-field prompt overrides
}

// Schema materializes the form definition as a FieldSchema.
func (fd *FormDefinition) Schema() *models.FieldSchema {
	fields := make([]models.FieldDef, len(fd.Fields))
	copy(fields, fd.Fields)
	return &models.FieldSchema{Title: fd.Title, Fields: fields}
}

// Catalog is an ordered read-only collection of predefined forms.
type Catalog struct {
	forms []FormDefinition
}

// NewCatalog creates a catalog from explicit definitions.
func NewCatalog(forms []FormDefinition) *Catalog {
	return &Catalog{forms: forms}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return NewCatalog(builtinForms())
}

// Load reads a catalog from a YAML file. The file replaces the built-in
// catalog entirely.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var doc struct {
		Forms []FormDefinition `yaml:"forms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(doc.Forms) == 0 {
		return nil, fmt.Errorf("catalog file contains no forms")
	}
	for i := range doc.Forms {
		schema := doc.Forms[i].Schema()
		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("invalid form %q in catalog: %w", doc.Forms[i].Key, err)
		}
	}
	slog.Info("catalog.Load: loaded forms catalog", "path", path, "forms", len(doc.Forms))
	return NewCatalog(doc.Forms), nil
}

// Forms returns the catalog entries in declaration order.
func (c *Catalog) Forms() []FormDefinition {
	return c.forms
}

// Get returns the form with the given key, or nil.
func (c *Catalog) Get(key string) *FormDefinition {
	for i := range c.forms {
		if c.forms[i].Key == key {
			return &c.forms[i]
		}
	}
	return nil
}

// Match finds the predefined form whose key or any listed synonym appears as
// a case-insensitive substring of the user's choice text. The first matching
// form in declaration order wins; nil means no match.
func (c *Catalog) Match(text string) *FormDefinition {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil
	}
	for i := range c.forms {
		form := &c.forms[i]
		if strings.Contains(needle, strings.ToLower(form.Key)) {
			return form
		}
		for _, syn := range form.Synonyms {
			if syn != "" && strings.Contains(needle, strings.ToLower(syn)) {
				return form
			}
		}
	}
	return nil
}

// builtinForms is the default catalog: the service request intake plus two
// common secondary forms.
func builtinForms() []FormDefinition {
	return []FormDefinition{
		{
			Key:      "service_request",
			Title:    "Service Request",
			Synonyms: []string{"service request", "it help", "helpdesk", "help desk", "support", "incident", "ticket"},
			Fields: []models.FieldDef{
				{Key: "name", Label: "Full Name", Type: models.FieldTypeText, Required: true},
				{Key: "email", Label: "Email Address", Type: models.FieldTypeEmail, Required: true},
				{Key: "issue_details", Label: "Issue Details", Type: models.FieldTypeTextarea, Required: true},
				{Key: "type", Label: "Request Type", Type: models.FieldTypeSelect, Required: true, Options: []string{"incident", "service", "access"}},
				{Key: "urgency", Label: "Urgency", Type: models.FieldTypeSelect, Required: true, Options: []string{"low", "medium", "high", "critical"}},
				{Key: "location", Label: "Location", Type: models.FieldTypeRadio, Required: true, Options: []string{"office", "site", "remote"}},
			},
			Prompts: map[string]string{
				"name":          "Please provide your full name.",
				"email":         "What is your email address?",
				"issue_details": "Describe the issue in detail.",
				"type":          "What type of request is this? (e.g., incident, service, access)",
				"urgency":       "What is the urgency? (low, medium, high, critical)",
				"location":      "Where is the issue located? (office/site/remote)",
			},
		},
		{
			Key:      "reimbursement",
			Title:    "Expense Reimbursement",
			Synonyms: []string{"reimbursement", "expense", "expenses", "expense report", "claim"},
			Fields: []models.FieldDef{
				{Key: "name", Label: "Full Name", Type: models.FieldTypeText, Required: true},
				{Key: "email", Label: "Email Address", Type: models.FieldTypeEmail, Required: true},
				{Key: "expense_date", Label: "Expense Date", Type: models.FieldTypeDate, Required: true},
				{Key: "amount", Label: "Amount", Type: models.FieldTypeNumber, Required: true},
				{Key: "category", Label: "Category", Type: models.FieldTypeSelect, Required: true, Options: []string{"travel", "meals", "supplies", "other"}},
				{Key: "description", Label: "Description", Type: models.FieldTypeTextarea, Required: false},
			},
		},
		{
			Key:      "feedback",
			Title:    "Feedback",
			Synonyms: []string{"feedback", "survey", "comments", "suggestion"},
			Fields: []models.FieldDef{
				{Key: "name", Label: "Full Name", Type: models.FieldTypeText, Required: false},
				{Key: "email", Label: "Email Address", Type: models.FieldTypeEmail, Required: false},
				{Key: "rating", Label: "Rating", Type: models.FieldTypeRadio, Required: true, Options: []string{"1", "2", "3", "4", "5"}},
				{Key: "comments", Label: "Comments", Type: models.FieldTypeTextarea, Required: true},
			},
		},
	}
}
