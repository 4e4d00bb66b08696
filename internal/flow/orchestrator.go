package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/formdesk/formdesk/internal/catalog"
	"github.com/formdesk/formdesk/internal/genai"
	"github.com/formdesk/formdesk/internal/models"
)

// maxInputLen caps a single sanitized user utterance.
const maxInputLen = 4000

// ackSystemPrompt steers the optional one-line acknowledgement after a field
// value is committed.
const ackSystemPrompt = `You acknowledge a recorded form field in one short friendly sentence.
Do not ask a question. Do not repeat the field prompt. Plain text only.`

var (
	buildModePattern = regexp.MustCompile(`(?i)\b(?:custom|new form|build|create|design|my own)\b`)
	formForPattern   = regexp.MustCompile(`(?i)\bform (?:for|about) ([a-z0-9 _-]+?)(?:\s+with\b|[.,;:]|$)`)
	namedFormPattern = regexp.MustCompile(`(?i)\b(?:an?|the) ([a-z0-9 _-]+?) form\b`)
)

// Orchestrator drives one conversation turn through the fixed node order:
// entry cleanup, input sanitation, routing, input processing, prompt emission,
// exit cleanup. It owns no state of its own; everything lives in the session.
type Orchestrator struct {
	sessions    SessionManager
	genaiClient genai.ClientInterface // optional
	suggester   *ValueSuggester
	builder     *SchemaBuilder
	catalog     *catalog.Catalog
}

// NewOrchestrator creates a turn orchestrator. genaiClient may be nil; every
// GenAI-backed step then falls back to its deterministic path.
func NewOrchestrator(sessions SessionManager, genaiClient genai.ClientInterface, knowledge *catalog.KnowledgeBase, cat *catalog.Catalog) *Orchestrator {
	if cat == nil {
		cat = catalog.Default()
	}
	if knowledge == nil {
		knowledge = catalog.DefaultKnowledge()
	}
	return &Orchestrator{
		sessions:    sessions,
		genaiClient: genaiClient,
		suggester:   NewValueSuggester(genaiClient, knowledge),
		builder:     NewSchemaBuilder(genaiClient),
		catalog:     cat,
	}
}

// HandleTurn runs one full conversation turn for the thread. incoming is the
// client's message transcript for the turn; only the latest user message is
// consumed. It returns the assistant replies for this turn and the saved
// session state.
func (o *Orchestrator) HandleTurn(ctx context.Context, threadID string, incoming []models.Message) ([]models.Message, *models.SessionState, error) {
	session, err := o.sessions.Load(ctx, threadID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session for thread %s: %w", threadID, err)
	}

	// Entry cleanup. The reply buffer is rebuilt every turn; a stale
	// pending utterance from a crashed turn is dropped with it.
	session.PendingUserText = ""
	var replies []models.Message

	session.PendingUserText = sanitizeInput(latestUserText(incoming))
	slog.Debug("Orchestrator.HandleTurn: routed turn",
		"threadID", threadID,
		"phase", session.Phase(len(o.activeFields(session))),
		"hasInput", session.PendingUserText != "")

	if session.PendingUserText != "" && session.Greeted {
		o.processUser(ctx, session, &replies)
	}
	o.ask(session, &replies)

	// Exit cleanup happens in Save: the single-turn scratch slot is
	// cleared before the checkpoint is written.
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to save session for thread %s: %w", threadID, err)
	}
	return replies, session, nil
}

// Phase reports the session's current phase against its active field list.
func (o *Orchestrator) Phase(session *models.SessionState) models.SessionPhase {
	return session.Phase(len(o.activeFields(session)))
}

// activeFields returns the field list the session collects against.
func (o *Orchestrator) activeFields(session *models.SessionState) []models.FieldDef {
	if session.Schema != nil {
		return session.Schema.Fields
	}
	return defaultFields()
}

// activePrompts returns the per-key prompt overrides for the session.
func (o *Orchestrator) activePrompts(session *models.SessionState) map[string]string {
	if session.Schema == nil {
		return defaultPrompts()
	}
	if form := o.catalog.Get(session.FormType); form != nil {
		return form.Prompts
	}
	return nil
}

// processUser consumes the sanitized user utterance according to the
// session's current phase.
func (o *Orchestrator) processUser(ctx context.Context, session *models.SessionState, replies *[]models.Message) {
	text := session.PendingUserText
	fields := o.activeFields(session)

	switch session.Phase(len(fields)) {
	case models.PhaseAwaitingConfirmation:
		o.processConfirmation(ctx, session, text, replies)
	case models.PhaseBuildingSchema:
		o.processSchemaSpec(ctx, session, text, replies)
	case models.PhaseSelectingForm:
		o.processFormChoice(ctx, session, text, replies)
	case models.PhaseReviewingSchema:
		o.processReview(ctx, session, text, replies)
	case models.PhaseCollectingField:
		o.processFieldInput(ctx, session, fields[session.FieldCursor], text, replies)
	case models.PhaseDone, models.PhaseGreeting:
		// Nothing to consume.
	}
}

// processFormChoice resolves the user's form selection: a catalog match, a
// message that already reads like a field specification, an explicit request
// to build a custom form, or none of those.
func (o *Orchestrator) processFormChoice(ctx context.Context, session *models.SessionState, text string, replies *[]models.Message) {
	// Spec-looking text wins over a coincidental catalog synonym hit, so
	// "name, email and a support checkbox" builds rather than matching the
	// support form.
	if looksLikeFieldSpec(text) {
		session.SchemaBuildMode = true
		session.ProposedFormType = proposedFormType(text)
		o.processSchemaSpec(ctx, session, text, replies)
		return
	}

	if form := o.catalog.Match(text); form != nil {
		session.Schema = form.Schema()
		session.FormType = form.Key
		session.SchemaConfirmed = true
		session.FieldCursor = 0
		session.AskedCursor = models.NoFieldAsked
		slog.Info("Orchestrator.processFormChoice: selected predefined form",
			"threadID", session.ThreadID, "form", form.Key)
		*replies = append(*replies, models.AssistantMessage(
			fmt.Sprintf("Great, let's fill out the %s form.", form.Title)))
		return
	}

	if buildModePattern.MatchString(text) {
		session.SchemaBuildMode = true
		session.ProposedFormType = proposedFormType(text)
		*replies = append(*replies, models.AssistantMessage(schemaHelpText))
		return
	}

	*replies = append(*replies, models.AssistantMessage(
		"I don't recognize that form. "+formChoicePrompt(o.catalog)))
}

// processSchemaSpec accumulates specification text and attempts schema
// synthesis. Success moves the session to review; failure re-prompts.
func (o *Orchestrator) processSchemaSpec(ctx context.Context, session *models.SessionState, text string, replies *[]models.Message) {
	if session.SchemaDraft == "" {
		session.SchemaDraft = text
	} else {
		session.SchemaDraft += "\n" + text
	}
	if session.ProposedFormType == "" {
		session.ProposedFormType = proposedFormType(text)
	}

	schema := o.builder.BuildSchema(ctx, session.SchemaDraft)
	if schema == nil {
		slog.Debug("Orchestrator.processSchemaSpec: no fields parsed yet", "threadID", session.ThreadID)
		*replies = append(*replies, models.AssistantMessage(
			"I couldn't identify any fields in that. "+schemaHelpText))
		return
	}

	if session.ProposedFormType != "" {
		schema.Title = titleCaseWords(session.ProposedFormType)
	}
	session.Schema = schema
	session.FormType = snakeCase(schema.Title)
	session.SchemaBuildMode = false
	session.SchemaConfirmed = false
	session.AwaitingSchemaChanges = false
	slog.Info("Orchestrator.processSchemaSpec: schema synthesized",
		"threadID", session.ThreadID, "form", session.FormType, "fields", len(schema.Fields))
	*replies = append(*replies, models.AssistantMessage(schemaPreview(schema)))
}

// processReview handles the reply to a schema preview.
func (o *Orchestrator) processReview(ctx context.Context, session *models.SessionState, text string, replies *[]models.Message) {
	switch ClassifyReviewIntent(ctx, o.genaiClient, text) {
	case ReviewIntentYes:
		session.SchemaConfirmed = true
		session.AwaitingSchemaChanges = false
		session.FieldCursor = 0
		session.AskedCursor = models.NoFieldAsked
		slog.Info("Orchestrator.processReview: schema confirmed",
			"threadID", session.ThreadID, "form", session.FormType)
	case ReviewIntentChange:
		// ask emits the edit help for this turn and clears the flag again.
		session.AwaitingSchemaChanges = true
	default:
		if ApplyEditCommand(session, text) {
			session.AwaitingSchemaChanges = false
			*replies = append(*replies, models.AssistantMessage(schemaPreview(session.Schema)))
		}
		// A malformed edit command is ignored; ask restates the preview.
	}
}

// processFieldInput suggests a value for the cursor field, writes it
// optimistically, and asks for confirmation.
func (o *Orchestrator) processFieldInput(ctx context.Context, session *models.SessionState, field models.FieldDef, text string, replies *[]models.Message) {
	value := o.suggester.Suggest(ctx, field, text)
	session.FormValues[field.Key] = value
	session.AwaitingConfirmation = true
	session.PendingFieldIndex = session.FieldCursor
	session.PendingValue = value
	*replies = append(*replies, models.AssistantMessage(confirmValuePrompt(field, value)))
}

// processConfirmation resolves a yes/no/correction reply to a suggested
// value. The value is already written; yes advances, no removes it and
// re-asks, anything else becomes the corrected value.
func (o *Orchestrator) processConfirmation(ctx context.Context, session *models.SessionState, text string, replies *[]models.Message) {
	fields := o.activeFields(session)
	idx := session.PendingFieldIndex
	if idx < 0 || idx >= len(fields) {
		session.ClearPending()
		return
	}
	field := fields[idx]

	switch ClassifyConfirmation(text) {
	case ConfirmIntentYes:
		session.ClearPending()
		session.FieldCursor = idx + 1
		slog.Debug("Orchestrator.processConfirmation: value committed",
			"threadID", session.ThreadID, "field", field.Key)
		*replies = append(*replies, models.AssistantMessage(o.commitAck(ctx, field)))
	case ConfirmIntentNo:
		delete(session.FormValues, field.Key)
		session.ClearPending()
		session.AskedCursor = models.NoFieldAsked
	case ConfirmIntentCorrection:
		value := NormalizeFieldValue(field.Key, text)
		session.FormValues[field.Key] = value
		session.PendingValue = value
		*replies = append(*replies, models.AssistantMessage(confirmValuePrompt(field, value)))
	}
}

// commitAck produces the post-commit acknowledgement, preferring a generated
// one-liner and falling back to the fixed text.
func (o *Orchestrator) commitAck(ctx context.Context, field models.FieldDef) string {
	if o.genaiClient == nil {
		return recordedAckFallback(field.Key)
	}
	ack, err := o.genaiClient.GeneratePrompt(ctx, ackSystemPrompt,
		fmt.Sprintf("The %s field was just recorded.", field.Label))
	if err != nil || strings.TrimSpace(ack) == "" {
		slog.Debug("Orchestrator.commitAck: falling back to fixed acknowledgement", "field", field.Key, "error", err)
		return recordedAckFallback(field.Key)
	}
	return strings.TrimSpace(ack)
}

// ask emits the outbound prompt for the session's (possibly just-changed)
// phase. The asked cursor guards field prompts against duplicate emission on
// re-delivered turns.
func (o *Orchestrator) ask(session *models.SessionState, replies *[]models.Message) {
	fields := o.activeFields(session)

	switch session.Phase(len(fields)) {
	case models.PhaseGreeting:
		session.Greeted = true
		*replies = append(*replies, models.AssistantMessage(greetingMessage(o.catalog)))
	case models.PhaseSelectingForm, models.PhaseBuildingSchema,
		models.PhaseReviewingSchema, models.PhaseAwaitingConfirmation:
		// These phases answer inside processUser; if the turn produced no
		// reply at all, restate where the conversation stands.
		if len(*replies) == 0 {
			*replies = append(*replies, models.AssistantMessage(o.reprompt(session)))
		}
	case models.PhaseCollectingField:
		if session.AskedCursor != session.FieldCursor {
			prompts := o.activePrompts(session)
			*replies = append(*replies, models.AssistantMessage(fieldPrompt(fields[session.FieldCursor], prompts)))
			session.AskedCursor = session.FieldCursor
		}
	case models.PhaseDone:
		// A completed session stays open; every turn restates completion.
		*replies = append(*replies, models.AssistantMessage(CompletionMessage))
	}
}

// reprompt restates the open question for phases that normally reply from
// processUser, for turns that arrive without usable input.
func (o *Orchestrator) reprompt(session *models.SessionState) string {
	switch session.Phase(len(o.activeFields(session))) {
	case models.PhaseBuildingSchema:
		return schemaHelpText
	case models.PhaseReviewingSchema:
		if session.AwaitingSchemaChanges {
			session.AwaitingSchemaChanges = false
			return editHelpText
		}
		return schemaPreview(session.Schema)
	case models.PhaseAwaitingConfirmation:
		fields := o.activeFields(session)
		if idx := session.PendingFieldIndex; idx >= 0 && idx < len(fields) {
			return confirmValuePrompt(fields[idx], session.PendingValue)
		}
		return formChoicePrompt(o.catalog)
	default:
		return formChoicePrompt(o.catalog)
	}
}

// latestUserText returns the content of the most recent user-role message.
func latestUserText(incoming []models.Message) string {
	for i := len(incoming) - 1; i >= 0; i-- {
		if models.NormalizeRole(string(incoming[i].Role)) == models.RoleUser {
			return incoming[i].Content
		}
	}
	return ""
}

// sanitizeInput trims, normalizes quote characters, collapses whitespace
// runs, and caps the utterance length at a rune boundary.
func sanitizeInput(text string) string {
	text = collapseWhitespace(normalizeQuotes(strings.TrimSpace(text)))
	if len(text) > maxInputLen {
		cut := maxInputLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// looksLikeFieldSpec reports whether free text already reads like a field
// specification rather than a form choice.
func looksLikeFieldSpec(text string) bool {
	for _, part := range splitTopLevel(text, ',', '\n', ';') {
		if strings.Contains(part, ":") && strictTokenPattern.MatchString(part) {
			return true
		}
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "field") {
		return true
	}
	return scanFieldType(text) != "" && (strings.Contains(lower, " and ") || strings.Contains(text, ","))
}

// proposedFormType extracts a form name from phrasing like "a form for
// travel requests" or "an onboarding form".
func proposedFormType(text string) string {
	if m := formForPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := namedFormPattern.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(strings.ToLower(m[1]))
		for _, noise := range []string{"custom", "new", "different", "other"} {
			if candidate == noise {
				return ""
			}
		}
		return candidate
	}
	return ""
}
