// Package flow implements the FormDesk conversation engine.
//
// This file implements the two intent classifiers: schema-review intent
// (YES / CHANGE / AMBIGUOUS) and per-field confirmation intent. The review
// classifier tries the external service first when available; the heuristic
// path is mandatory and must be independently correct.
package flow

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/formdesk/formdesk/internal/genai"
)

// ReviewIntent classifies a schema-review reply.
type ReviewIntent string

const (
	// ReviewIntentYes confirms the schema as shown.
	ReviewIntentYes ReviewIntent = "YES"
	// ReviewIntentChange asks for edits before confirming.
	ReviewIntentChange ReviewIntent = "CHANGE"
	// ReviewIntentAmbiguous is anything else, treated as a possible edit command.
	ReviewIntentAmbiguous ReviewIntent = "AMBIGUOUS"
)

// ConfirmIntent classifies a reply to a suggested-value prompt.
type ConfirmIntent string

const (
	// ConfirmIntentYes commits the suggested value.
	ConfirmIntentYes ConfirmIntent = "yes"
	// ConfirmIntentNo rejects the suggested value for re-collection.
	ConfirmIntentNo ConfirmIntent = "no"
	// ConfirmIntentCorrection treats the reply itself as the corrected value.
	ConfirmIntentCorrection ConfirmIntent = "correction"
)

// reviewIntentPrompt is the fixed few-shot instruction for the external path.
const reviewIntentPrompt = `Classify the user's reply to "Does this form look right?" as exactly one token: YES, CHANGE, or AMBIGUOUS.
Examples:
"yes looks good" -> YES
"go ahead" -> YES
"no changes needed" -> YES
"can you edit the email field" -> CHANGE
"no" -> CHANGE
"what is this?" -> AMBIGUOUS
Answer with the single token only.`

// Negations that would otherwise match an affirmative pattern; checked first.
var reviewOverrideChange = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bdon'?t\s+proceed\b`),
	regexp.MustCompile(`(?i)\bnot\s+(?:ready|done|correct|right)\b`),
}

var reviewYesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(?:y|yes|yeah|yep)\b`),
	regexp.MustCompile(`(?i)\bok(?:ay)?\b`),
	regexp.MustCompile(`(?i)\bconfirm(?:ed)?\b`),
	regexp.MustCompile(`(?i)\blooks\s+good\b`),
	regexp.MustCompile(`(?i)\b(?:proceed|continue|go\s+ahead|ready)\b`),
	regexp.MustCompile(`(?i)^\s*done\b`),
	regexp.MustCompile(`(?i)\bno\s+changes?\b`),
	regexp.MustCompile(`(?i)\bkeep\s+it\s+as\s+is\b`),
	regexp.MustCompile(`(?i)don'?t\s+want\s+to\s+make\s+any\s+changes?`),
}

var reviewChangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(?:n|no|nope)\b`),
	regexp.MustCompile(`(?i)\b(?:change|edit|modify|revise|update)\b`),
	regexp.MustCompile(`(?i)\b(?:make|need|want)\b.*\bchanges?\b`),
}

// ClassifyReviewIntent decides how the user responded to the schema preview.
// The external classifier runs first when a client is configured; on any
// failure or unexpected token the heuristic patterns decide.
func ClassifyReviewIntent(ctx context.Context, client genai.ClientInterface, text string) ReviewIntent {
	if client != nil {
		if intent, ok := classifyReviewWithGenAI(ctx, client, text); ok {
			return intent
		}
	}
	return classifyReviewHeuristic(text)
}

func classifyReviewWithGenAI(ctx context.Context, client genai.ClientInterface, text string) (ReviewIntent, bool) {
	response, err := client.GeneratePrompt(ctx, reviewIntentPrompt, text)
	if err != nil {
		slog.Warn("flow.classifyReviewWithGenAI: service unavailable, using heuristics", "error", err)
		return "", false
	}
	switch token := strings.ToUpper(strings.TrimSpace(response)); token {
	case string(ReviewIntentYes), string(ReviewIntentChange), string(ReviewIntentAmbiguous):
		return ReviewIntent(token), true
	default:
		slog.Warn("flow.classifyReviewWithGenAI: unexpected token, using heuristics", "token", token)
		return "", false
	}
}

func classifyReviewHeuristic(text string) ReviewIntent {
	for _, re := range reviewOverrideChange {
		if re.MatchString(text) {
			return ReviewIntentChange
		}
	}
	for _, re := range reviewYesPatterns {
		if re.MatchString(text) {
			return ReviewIntentYes
		}
	}
	for _, re := range reviewChangePatterns {
		if re.MatchString(text) {
			return ReviewIntentChange
		}
	}
	return ReviewIntentAmbiguous
}

var (
	confirmYesPattern = regexp.MustCompile(`(?i)\b(?:yes|y|correct|confirm|ok|okay)\b`)
	confirmNoPattern  = regexp.MustCompile(`(?i)\b(?:no|n|incorrect|wrong)\b`)
)

// ClassifyConfirmation decides whether a reply to "did I get this right"
// commits, rejects, or corrects the pending value. Purely heuristic.
func ClassifyConfirmation(text string) ConfirmIntent {
	switch {
	case confirmYesPattern.MatchString(text):
		return ConfirmIntentYes
	case confirmNoPattern.MatchString(text):
		return ConfirmIntentNo
	default:
		return ConfirmIntentCorrection
	}
}
