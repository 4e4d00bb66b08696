// Package flow implements the FormDesk conversation engine.
//
// This file implements the dynamic schema builder: three cooperating parse
// strategies that turn a free-text or semi-structured form description into
// a FieldSchema. Strategy order is fixed; the first success wins:
//
//  1. GenAI inference (optional, degrades silently on any failure)
//  2. Heuristic natural-language field extraction
//  3. Strict key:type[:required](options) token grammar
//
// Each heuristic is an independent pure extractor tried in sequence with
// explicit fallthrough.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/formdesk/formdesk/internal/genai"
	"github.com/formdesk/formdesk/internal/models"
)

// schemaInferencePrompt is the fixed instruction template for strategy 1.
const schemaInferencePrompt = `You convert form descriptions into JSON. Respond with exactly one JSON object of the shape
{"title": string, "fields": [{"key": snake_case string, "label": string, "type": one of "text"|"email"|"number"|"date"|"textarea"|"select"|"radio"|"checkbox", "required": bool, "options": [string] (only for select/radio/checkbox)}], "submit_label": string (optional)}
and nothing else. No markdown, no commentary.`

// SchemaBuilder turns free-text form specifications into field schemas.
type SchemaBuilder struct {
	genaiClient genai.ClientInterface // optional; nil selects the heuristic path
}

// NewSchemaBuilder creates a schema builder. genaiClient may be nil.
func NewSchemaBuilder(genaiClient genai.ClientInterface) *SchemaBuilder {
	return &SchemaBuilder{genaiClient: genaiClient}
}

// BuildSchema runs the strategy chain over the accumulated specification
// text. A nil result with nil error means no strategy found any fields and
// the caller should re-prompt.
func (sb *SchemaBuilder) BuildSchema(ctx context.Context, spec string) *models.FieldSchema {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	if schema := sb.inferSchemaWithGenAI(ctx, spec); schema != nil {
		slog.Debug("SchemaBuilder.BuildSchema: GenAI inference succeeded", "fields", len(schema.Fields))
		return schema
	}
	if schema := parseNaturalLanguageSpec(spec); schema != nil {
		slog.Debug("SchemaBuilder.BuildSchema: heuristic parse succeeded", "fields", len(schema.Fields))
		return schema
	}
	if schema := parseStrictSpec(spec); schema != nil {
		slog.Debug("SchemaBuilder.BuildSchema: strict grammar parse succeeded", "fields", len(schema.Fields))
		return schema
	}
	slog.Debug("SchemaBuilder.BuildSchema: no strategy produced fields")
	return nil
}

// inferSchemaWithGenAI asks the external text service for a strict JSON
// schema object. Any service or parse failure falls through to the next
// strategy.
func (sb *SchemaBuilder) inferSchemaWithGenAI(ctx context.Context, spec string) *models.FieldSchema {
	if sb.genaiClient == nil {
		return nil
	}
	response, err := sb.genaiClient.GeneratePrompt(ctx, schemaInferencePrompt, spec)
	if err != nil {
		slog.Warn("SchemaBuilder.inferSchemaWithGenAI: service unavailable, falling back", "error", err)
		return nil
	}
	raw := extractBalancedJSON(response)
	if raw == "" {
		slog.Warn("SchemaBuilder.inferSchemaWithGenAI: no JSON object in response")
		return nil
	}
	var schema models.FieldSchema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		slog.Warn("SchemaBuilder.inferSchemaWithGenAI: malformed JSON, falling back", "error", err)
		return nil
	}
	if len(schema.Fields) == 0 {
		return nil
	}
	sanitizeInferredSchema(&schema)
	return &schema
}

// sanitizeInferredSchema repairs model output so it satisfies the FieldSchema
// contract: snake_case keys, known types, labels present.
func sanitizeInferredSchema(schema *models.FieldSchema) {
	if strings.TrimSpace(schema.Title) == "" {
		schema.Title = "Custom Form"
	}
	seen := make(map[string]bool, len(schema.Fields))
	fields := schema.Fields[:0]
	for _, f := range schema.Fields {
		if f.Key == "" && f.Label == "" {
			continue
		}
		if f.Key == "" {
			f.Key = snakeCase(f.Label)
		} else {
			f.Key = snakeCase(f.Key)
		}
		if seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		if f.Label == "" {
			f.Label = humanizeKey(f.Key)
		}
		if !models.IsValidFieldType(f.Type) {
			f.Type = models.FieldTypeText
		}
		if !models.IsChoiceType(f.Type) {
			f.Options = nil
		}
		fields = append(fields, f)
	}
	schema.Fields = fields
}

// --- Strategy 2: heuristic natural-language parser ---

var (
	renderEchoPattern  = regexp.MustCompile(`(?i)^\s*i\s+will\s+render[^.:\n]*[.:]\s*`)
	replySuffixPattern = regexp.MustCompile(`(?i)[.;,\s]*reply\s+['"]?yes['"]?.*$`)
	submitLabelPattern = regexp.MustCompile(`(?i)(?:the\s+)?submit\s+label\s+(?:should\s+be|is|:)\s*['"]?([^,.;\n'"]+)['"]?`)
	bulletPattern      = regexp.MustCompile(`^\s*(?:[-*\x{2022}]+|\d+[.)])\s*`)
	trailingParenMeta  = regexp.MustCompile(`^(.*?)\(([^()]*)\)\s*$`)
	yesNoChunkPattern  = regexp.MustCompile(`(?i)^(?:a\s+)?yes\s*/\s*no(?:\s+(?:question|field|choice))?$`)
	yesNoMention       = regexp.MustCompile(`(?i)\byes\s*/\s*no\b`)
	fiscalYearPattern  = regexp.MustCompile(`(?i)\bfiscal\s+year\b`)
	strictTokenChunk   = regexp.MustCompile(`[A-Za-z0-9]:[a-z]`)
)

// typeKeywords maps specification vocabulary onto field types, in match
// priority order. Password and tel inputs are collected as plain text.
var typeKeywords = []struct {
	keyword string
	ftype   models.FieldType
}{
	{"textarea", models.FieldTypeTextarea},
	{"text area", models.FieldTypeTextarea},
	{"multiline", models.FieldTypeTextarea},
	{"multi-line", models.FieldTypeTextarea},
	{"long text", models.FieldTypeTextarea},
	{"email", models.FieldTypeEmail},
	{"number", models.FieldTypeNumber},
	{"numeric", models.FieldTypeNumber},
	{"date", models.FieldTypeDate},
	{"dropdown", models.FieldTypeSelect},
	{"drop-down", models.FieldTypeSelect},
	{"select", models.FieldTypeSelect},
	{"radio", models.FieldTypeRadio},
	{"checkbox", models.FieldTypeCheckbox},
	{"check box", models.FieldTypeCheckbox},
	{"password", models.FieldTypeText},
	{"tel", models.FieldTypeText},
	{"phone", models.FieldTypeText},
}

// metaPhrases are wording fragments removed from chunk text before it is
// turned into a label.
var metaPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bas\s+an?\s+(?:textarea|text\s+area|email|number|numeric|date|dropdown|drop-down|select|radio|checkbox|check\s+box|password|tel|phone)(?:\s+(?:field|input|list|menu|box|group))?\b`),
	regexp.MustCompile(`(?i)\b(?:textarea|text\s+area|dropdown|drop-down|select|radio|checkbox|check\s+box)(?:\s+(?:field|input|list|menu|box|group))?\b`),
	regexp.MustCompile(`(?i)\bwith\s+(?:the\s+)?options?\b`),
	regexp.MustCompile(`(?i)\bwith\b\s*$`),
	regexp.MustCompile(`(?i)\b(?:which\s+is\s+|is\s+)?(?:required|mandatory|optional)\b`),
	regexp.MustCompile(`(?i)^\s*(?:add|include|collect|capture)\s+(?:an?\s+)?`),
	regexp.MustCompile(`(?i)\bfield\s*$`),
}

// parseNaturalLanguageSpec segments a cleaned specification into field chunks
// and extracts a FieldDef from each. Returns nil when no chunk yields a field.
func parseNaturalLanguageSpec(spec string) *models.FieldSchema {
	text := normalizeQuotes(spec)
	text = renderEchoPattern.ReplaceAllString(text, "")
	text = replySuffixPattern.ReplaceAllString(text, "")

	submitLabel := ""
	if m := submitLabelPattern.FindStringSubmatch(text); m != nil {
		submitLabel = strings.TrimSpace(m[1])
		text = submitLabelPattern.ReplaceAllString(text, "")
	}

	schema := &models.FieldSchema{Title: "Custom Form", SubmitLabel: submitLabel}
	seen := make(map[string]bool)
	chunks := segmentFieldChunks(text)
	for i := 0; i < len(chunks); i++ {
		field, absorbed, ok := parseFieldChunk(chunks[i])
		if !ok {
			continue
		}
		// An option list written in the chunk body ("... with IT, HR,
		// Finance") is split across chunks by the comma segmentation;
		// reabsorb the bare option tokens that follow.
		if absorbed {
			for i+1 < len(chunks) && looksLikeOptionToken(chunks[i+1]) {
				i++
				field.Options = append(field.Options, strings.TrimSpace(chunks[i]))
			}
		}
		if seen[field.Key] {
			continue
		}
		seen[field.Key] = true
		schema.Fields = append(schema.Fields, field)
	}
	if len(schema.Fields) == 0 {
		return nil
	}
	return schema
}

// segmentFieldChunks splits specification text into candidate field chunks:
// top-level commas, newlines and semicolons first, then the word "and" and
// sentence boundaries. Bullet markers are stripped.
func segmentFieldChunks(text string) []string {
	var chunks []string
	for _, part := range splitTopLevel(text, ',', '\n', ';') {
		for _, sub := range splitTopLevelWord(part, "and") {
			for _, sentence := range splitSentences(sub) {
				sentence = bulletPattern.ReplaceAllString(sentence, "")
				sentence = strings.TrimSpace(sentence)
				if sentence != "" {
					chunks = append(chunks, sentence)
				}
			}
		}
	}
	return chunks
}

// splitSentences splits on ". " boundaries outside parentheses.
func splitSentences(text string) []string {
	depth := 0
	var parts []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 && text[i+1] == ' ' {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, text[start:])
	return parts
}

// parseFieldChunk extracts one FieldDef from a chunk of specification text.
// absorbed reports that the option list came from the chunk body, so the
// caller may reattach option tokens split off by comma segmentation.
func parseFieldChunk(chunk string) (field models.FieldDef, absorbed bool, ok bool) {
	body := chunk

	// key:type tokens belong to the strict grammar; mangling them here would
	// mask that strategy entirely.
	if strictTokenChunk.MatchString(chunk) {
		return field, false, false
	}

	// A standalone yes/no chunk becomes an optional Yes/No radio group.
	if yesNoChunkPattern.MatchString(collapseWhitespace(chunk)) {
		return models.FieldDef{
			Key:     "yes_no",
			Label:   "Yes/No",
			Type:    models.FieldTypeRadio,
			Options: []string{"Yes", "No"},
		}, false, true
	}

	// A trailing parenthetical is field metadata: type, required/optional,
	// and an option list.
	var meta string
	if m := trailingParenMeta.FindStringSubmatch(chunk); m != nil {
		body = m[1]
		meta = m[2]
	}

	if meta != "" {
		field.Type = scanFieldType(meta)
		field.Required = scanRequired(meta)
		field.Options = scanOptions(meta, field.Type)
	}
	if field.Type == "" {
		field.Type = scanFieldType(body)
	}
	if !field.Required {
		field.Required = scanRequired(body)
	}
	if field.Type == "" {
		field.Type = models.FieldTypeText
	}

	// "Department as a dropdown with IT, HR, Finance" carries its option
	// list in the body rather than a parenthetical.
	if models.IsChoiceType(field.Type) && len(field.Options) == 0 {
		field.Options, body = scanBodyOptions(body)
		absorbed = len(field.Options) > 0
	}

	field.Options = resolveChoiceOptions(&field, chunk)

	if fiscalYearPattern.MatchString(chunk) {
		field.Options = fiscalYearOptions(time.Now().Year())
		if !models.IsChoiceType(field.Type) {
			field.Type = models.FieldTypeSelect
		}
	}

	label := chunkLabel(body)
	if label == "" {
		return field, false, false
	}
	field.Label = label
	field.Key = snakeCase(label)
	if field.Key == "" {
		return field, false, false
	}
	return field, absorbed, true
}

// looksLikeOptionToken reports whether a chunk is a bare option value rather
// than a field description of its own.
func looksLikeOptionToken(chunk string) bool {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" || strings.ContainsAny(chunk, "()") {
		return false
	}
	if len(strings.Fields(chunk)) > 3 {
		return false
	}
	if scanFieldType(chunk) != "" {
		return false
	}
	lower := strings.ToLower(chunk)
	return !strings.Contains(lower, "required") && !strings.Contains(lower, "optional") && !strings.Contains(lower, "field")
}

// scanFieldType finds the first type keyword in the text, or "".
func scanFieldType(text string) models.FieldType {
	lower := strings.ToLower(text)
	for _, tk := range typeKeywords {
		if strings.Contains(lower, tk.keyword) {
			return tk.ftype
		}
	}
	return ""
}

// scanRequired reports whether the text marks the field required. An
// explicit "optional" wins over a stray "required".
func scanRequired(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "optional") {
		return false
	}
	return strings.Contains(lower, "required") || strings.Contains(lower, "mandatory")
}

// scanOptions extracts a comma/slash/"or"-separated option list from
// parenthetical metadata, after dropping type and required keywords.
func scanOptions(meta string, ftype models.FieldType) []string {
	if !models.IsChoiceType(ftype) {
		return nil
	}
	return splitOptionList(stripMetaKeywords(meta))
}

// scanBodyOptions extracts an option list introduced by "with" or a colon in
// the chunk body, returning the remaining body text.
func scanBodyOptions(body string) ([]string, string) {
	for _, marker := range []string{" with the options ", " with options ", " with ", ": "} {
		lower := strings.ToLower(body)
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		opts := splitOptionList(body[idx+len(marker):])
		if len(opts) > 0 {
			return opts, body[:idx]
		}
	}
	return nil, body
}

// resolveChoiceOptions applies the fallback rules for choice fields that
// arrived without options: a yes/no mention supplies [yes no]; a lone
// checkbox is upgraded to a Yes/No radio group.
func resolveChoiceOptions(field *models.FieldDef, chunk string) []string {
	if !models.IsChoiceType(field.Type) || len(field.Options) > 0 {
		return field.Options
	}
	if yesNoMention.MatchString(chunk) {
		return []string{"yes", "no"}
	}
	if field.Type == models.FieldTypeCheckbox {
		field.Type = models.FieldTypeRadio
		return []string{"Yes", "No"}
	}
	return field.Options
}

// stripMetaKeywords removes type and required/optional vocabulary so only
// option values remain.
func stripMetaKeywords(meta string) string {
	lower := meta
	for _, tk := range typeKeywords {
		lower = removeWordInsensitive(lower, tk.keyword)
	}
	for _, kw := range []string{"required", "mandatory", "optional", "field", "input", "list of", "options", "option"} {
		lower = removeWordInsensitive(lower, kw)
	}
	return lower
}

func removeWordInsensitive(text, word string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return re.ReplaceAllString(text, "")
}

// splitOptionList splits option values on commas, slashes, and the word "or".
func splitOptionList(text string) []string {
	var options []string
	for _, part := range splitTopLevel(text, ',', '/', ';') {
		for _, sub := range splitTopLevelWord(part, "or") {
			opt := strings.Trim(strings.TrimSpace(sub), `"'`)
			opt = strings.TrimSpace(strings.TrimPrefix(opt, "and "))
			if opt != "" {
				options = append(options, opt)
			}
		}
	}
	return options
}

// fiscalYearOptions generates three consecutive fiscal-year labels centered
// on the given year.
func fiscalYearOptions(year int) []string {
	return []string{
		fmt.Sprintf("FY%d", year-1),
		fmt.Sprintf("FY%d", year),
		fmt.Sprintf("FY%d", year+1),
	}
}

// chunkLabel turns the remaining chunk body into a display label.
func chunkLabel(body string) string {
	label := body
	for _, re := range metaPhrases {
		label = re.ReplaceAllString(label, " ")
	}
	label = strings.Trim(collapseWhitespace(label), " .,:;-")
	if label == "" {
		return ""
	}
	return titleCaseWords(label)
}

// --- Strategy 3: strict token grammar ---

var strictTokenPattern = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_ -]*?)\s*(?::\s*([a-z-]+))?\s*(?::\s*(required))?\s*(?:\(([^()]*)\))?\s*$`)

// parseStrictSpec parses the raw specification as a comma-separated list of
// key:type[:required](options) tokens. Every part must match the grammar;
// otherwise the strategy fails.
func parseStrictSpec(spec string) *models.FieldSchema {
	schema := &models.FieldSchema{Title: "Custom Form"}
	seen := make(map[string]bool)
	for _, part := range splitTopLevel(spec, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// A leading submit_label token names the submit button.
		if len(schema.Fields) == 0 && schema.SubmitLabel == "" {
			if rest, found := strings.CutPrefix(strings.ToLower(part), "submit_label:"); found {
				schema.SubmitLabel = strings.TrimSpace(part[len(part)-len(rest):])
				continue
			}
		}
		m := strictTokenPattern.FindStringSubmatch(part)
		if m == nil {
			return nil
		}
		rawKey, rawType, requiredTok, rawOptions := m[1], m[2], m[3], m[4]

		field := models.FieldDef{
			Key:      snakeCase(rawKey),
			Label:    humanizeKey(snakeCase(rawKey)),
			Required: requiredTok != "",
		}
		if field.Key == "" {
			return nil
		}
		switch rawType {
		case "":
			// Bare token: a non-required text field.
			field.Type = models.FieldTypeText
		default:
			ft := models.FieldType(rawType)
			if !models.IsValidFieldType(ft) {
				return nil
			}
			field.Type = ft
		}
		if rawOptions != "" {
			for _, opt := range splitTopLevel(rawOptions, ';', ',') {
				opt = strings.TrimSpace(opt)
				if opt != "" {
					field.Options = append(field.Options, opt)
				}
			}
		}
		if seen[field.Key] {
			continue
		}
		seen[field.Key] = true
		schema.Fields = append(schema.Fields, field)
	}
	if len(schema.Fields) == 0 {
		return nil
	}
	return schema
}
