// Package catalog provides static data sources for the conversation flow.
//
// This file implements the field knowledge base used to enrich GenAI value
// extraction prompts. Absence of an entry degrades gracefully.
package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldKnowledge describes the expected shape of a field's value.
type FieldKnowledge struct {
	Format   string   `yaml:"format" json:"format"`
	Examples []string `yaml:"examples" json:"examples"`
	Domain   string   `yaml:"domain" json:"domain"`
}

// KnowledgeBase maps field keys to knowledge entries.
type KnowledgeBase struct {
	entries map[string]FieldKnowledge
}

// NewKnowledgeBase creates a knowledge base from explicit entries.
func NewKnowledgeBase(entries map[string]FieldKnowledge) *KnowledgeBase {
	if entries == nil {
		entries = make(map[string]FieldKnowledge)
	}
	return &KnowledgeBase{entries: entries}
}

// DefaultKnowledge returns the built-in knowledge base.
func DefaultKnowledge() *KnowledgeBase {
	return NewKnowledgeBase(builtinKnowledge())
}

// LoadKnowledge reads a knowledge base from a YAML file, replacing the
// built-in entries entirely.
func LoadKnowledge(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	var doc struct {
		Fields map[string]FieldKnowledge `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}
	slog.Info("catalog.LoadKnowledge: loaded field knowledge base", "path", path, "fields", len(doc.Fields))
	return NewKnowledgeBase(doc.Fields), nil
}

// Lookup returns the knowledge entry for a field key, if present.
func (kb *KnowledgeBase) Lookup(fieldKey string) (FieldKnowledge, bool) {
	entry, ok := kb.entries[fieldKey]
	return entry, ok
}

func builtinKnowledge() map[string]FieldKnowledge {
	return map[string]FieldKnowledge{
		"name": {
			Format:   "first and last name, title-cased",
			Examples: []string{"Jane Doe", "Ravi Patel"},
			Domain:   "identity",
		},
		"email": {
			Format:   "a single lowercase email address",
			Examples: []string{"jane.doe@example.com"},
			Domain:   "contact",
		},
		"issue_details": {
			Format:   "one or two sentences describing the problem",
			Examples: []string{"My laptop will not boot after the latest update."},
			Domain:   "support",
		},
		"type": {
			Format:   "one of: incident, service, access",
			Examples: []string{"incident"},
			Domain:   "support",
		},
		"urgency": {
			Format:   "one of: low, medium, high, critical",
			Examples: []string{"high"},
			Domain:   "support",
		},
		"location": {
			Format:   "one of: office, site, remote",
			Examples: []string{"remote"},
			Domain:   "support",
		},
		"expense_date": {
			Format:   "a calendar date, YYYY-MM-DD preferred",
			Examples: []string{"2025-11-03"},
			Domain:   "finance",
		},
		"amount": {
			Format:   "a decimal number without currency symbol",
			Examples: []string{"42.50"},
			Domain:   "finance",
		},
	}
}
