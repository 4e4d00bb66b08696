// Package flow implements the FormDesk conversation engine.
//
// This file implements the schema review editor: free-text commands that
// mutate an unconfirmed schema. Malformed commands are ignored without error.
package flow

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/formdesk/formdesk/internal/models"
)

var (
	themeCommandPattern  = regexp.MustCompile(`(?i)^\s*theme\b`)
	addFieldPattern      = regexp.MustCompile(`(?i)\badd\s+field\s+(\S+)`)
	removeFieldPattern   = regexp.MustCompile(`(?i)\bremove\s+field\s+(.+?)\s*$`)
	addFieldTokenPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)(?::([a-z]+))?(?::(required))?$`)
)

// ApplyEditCommand recognizes and applies one schema edit command to the
// session. It reports whether anything changed; unrecognized or malformed
// text returns false with no state change.
func ApplyEditCommand(session *models.SessionState, text string) bool {
	if session.Schema == nil {
		return false
	}
	switch {
	case themeCommandPattern.MatchString(text):
		return applyThemeCommand(session, text)
	case addFieldPattern.MatchString(text):
		return applyAddField(session.Schema, text)
	case removeFieldPattern.MatchString(text):
		return applyRemoveField(session.Schema, text)
	default:
		return false
	}
}

// applyThemeCommand parses the first balanced JSON object after "theme" and
// replaces the session theme with it.
func applyThemeCommand(session *models.SessionState, text string) bool {
	raw := extractBalancedJSON(text)
	if raw == "" {
		slog.Debug("flow.applyThemeCommand: no JSON object found, ignoring")
		return false
	}
	var theme map[string]string
	if err := json.Unmarshal([]byte(raw), &theme); err != nil {
		slog.Debug("flow.applyThemeCommand: malformed theme JSON, ignoring", "error", err)
		return false
	}
	session.Theme = theme
	slog.Debug("flow.applyThemeCommand: theme replaced", "keys", len(theme))
	return true
}

// applyAddField appends a field parsed from "add field key[:type[:required]]".
// Defaults: type text, not required; the label is the humanized key.
func applyAddField(schema *models.FieldSchema, text string) bool {
	m := addFieldPattern.FindStringSubmatch(text)
	tok := addFieldTokenPattern.FindStringSubmatch(strings.TrimSpace(m[1]))
	if tok == nil {
		return false
	}
	key := snakeCase(tok[1])
	if key == "" || schema.FieldByKey(key) != nil {
		return false
	}
	field := models.FieldDef{
		Key:      key,
		Label:    humanizeKey(key),
		Type:     models.FieldTypeText,
		Required: tok[3] != "",
	}
	if tok[2] != "" {
		ft := models.FieldType(tok[2])
		if !models.IsValidFieldType(ft) {
			return false
		}
		field.Type = ft
	}
	schema.Fields = append(schema.Fields, field)
	slog.Debug("flow.applyAddField: field added", "key", field.Key, "type", field.Type)
	return true
}

// applyRemoveField removes every field whose snake-cased key or whitespace-
// normalized label matches the name after "remove field", case-insensitively.
// Removing an absent field is a successful no-op.
func applyRemoveField(schema *models.FieldSchema, text string) bool {
	m := removeFieldPattern.FindStringSubmatch(text)
	name := strings.TrimSpace(m[1])
	if name == "" {
		return false
	}
	keyNeedle := snakeCase(name)
	labelNeedle := strings.ToLower(collapseWhitespace(name))

	kept := schema.Fields[:0]
	removed := 0
	for _, f := range schema.Fields {
		if f.Key == keyNeedle || strings.ToLower(collapseWhitespace(f.Label)) == labelNeedle {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	schema.Fields = kept
	slog.Debug("flow.applyRemoveField: removal applied", "name", name, "removed", removed)
	return true
}
