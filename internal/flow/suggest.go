// Package flow implements the FormDesk conversation engine.
//
// This file implements the field-value suggestion pipeline: an optional
// GenAI extraction pass over the raw user input, followed by mandatory
// normalization.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/formdesk/formdesk/internal/catalog"
	"github.com/formdesk/formdesk/internal/genai"
	"github.com/formdesk/formdesk/internal/models"
)

// extractionSystemPrompt instructs the external service to answer with the
// bare value only.
const extractionSystemPrompt = "You extract a single form field value from a user's message. Return only the value, with no commentary, no quotes, and no punctuation around it."

// ValueSuggester produces normalized value suggestions for a field from raw
// user input.
type ValueSuggester struct {
	genaiClient genai.ClientInterface  // optional
	knowledge   *catalog.KnowledgeBase // optional prompt enrichment
}

// NewValueSuggester creates a suggester. Both collaborators may be nil.
func NewValueSuggester(genaiClient genai.ClientInterface, knowledge *catalog.KnowledgeBase) *ValueSuggester {
	return &ValueSuggester{genaiClient: genaiClient, knowledge: knowledge}
}

// Suggest runs the extraction pipeline for a field: the GenAI extraction is
// tried when available, its failure falls back to the raw input, and either
// way the result passes through the normalizer.
func (vs *ValueSuggester) Suggest(ctx context.Context, field models.FieldDef, input string) string {
	candidate := input
	if vs.genaiClient != nil {
		if extracted, err := vs.extract(ctx, field, input); err == nil && strings.TrimSpace(extracted) != "" {
			candidate = extracted
		}
	}
	return NormalizeFieldValue(field.Key, candidate)
}

// extract performs the templated external extraction call.
func (vs *ValueSuggester) extract(ctx context.Context, field models.FieldDef, input string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Field: %s (%s).", field.Key, field.Label)
	if vs.knowledge != nil {
		if entry, ok := vs.knowledge.Lookup(field.Key); ok {
			if entry.Format != "" {
				fmt.Fprintf(&sb, " Expected format: %s.", entry.Format)
			}
			if len(entry.Examples) > 0 {
				fmt.Fprintf(&sb, " Examples: %s.", strings.Join(entry.Examples, ", "))
			}
		}
	}
	if len(field.Options) > 0 {
		fmt.Fprintf(&sb, " Allowed values: %s.", strings.Join(field.Options, ", "))
	}
	fmt.Fprintf(&sb, "\nUser message: %s", input)

	value, err := vs.genaiClient.GeneratePrompt(ctx, extractionSystemPrompt, sb.String())
	if err != nil {
		slog.Warn("ValueSuggester.extract: service unavailable, using raw input", "field", field.Key, "error", err)
		return "", err
	}
	return strings.TrimSpace(value), nil
}
