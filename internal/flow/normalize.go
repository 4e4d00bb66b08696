// Package flow implements the FormDesk conversation engine.
//
// This file implements the field value normalizer: pure functions that map
// raw user text plus a field key onto a canonical value. Normalization is
// total; when nothing matches, the best-effort result is the trimmed,
// lowercased input.
package flow

import (
	"regexp"
	"strings"
)

// conversationalPrefixes is the fixed set of leading phrases stripped from
// free-text answers. Compound phrases are listed before their shorter forms.
var conversationalPrefixes = []string{
	"my name is",
	"the name is",
	"my email is",
	"my email address is",
	"you can reach me at",
	"i would say",
	"i think it's",
	"i think it is",
	"it would be",
	"name:",
	"email:",
	"i am",
	"i'm",
	"this is",
	"it's",
	"it is",
}

var (
	emailPattern         = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	trailingPunctPattern = regexp.MustCompile(`[.!?,;:]+$`)
)

// synonymBucket maps a set of keywords onto one canonical value. Buckets are
// ordered; the first keyword found as a substring wins.
type synonymBucket struct {
	canonical string
	keywords  []string
}

// enumSynonyms holds the per-field synonym tables for enumerated fields.
var enumSynonyms = map[string][]synonymBucket{
	"type": {
		{canonical: "incident", keywords: []string{"incident", "outage", "broken", "not working", "error", "bug"}},
		{canonical: "access", keywords: []string{"access", "permission", "login", "account", "password"}},
		{canonical: "service", keywords: []string{"service", "request", "install", "setup", "new "}},
	},
	"urgency": {
		{canonical: "critical", keywords: []string{"critical", "emergency", "asap", "immediately", "right away"}},
		{canonical: "high", keywords: []string{"high", "urgent", "important", "soon"}},
		{canonical: "medium", keywords: []string{"medium", "moderate", "normal"}},
		{canonical: "low", keywords: []string{"low", "minor", "whenever", "no rush", "not urgent"}},
	},
	"location": {
		{canonical: "office", keywords: []string{"office", "hq", "headquarters"}},
		{canonical: "site", keywords: []string{"site", "onsite", "on site"}},
		{canonical: "remote", keywords: []string{"remote", "home", "wfh", "work from home"}},
	},
}

// freeTextKeys are fields where the raw wording is preserved apart from
// conversational prefix stripping.
var freeTextKeys = map[string]bool{
	"issue_details": true,
	"description":   true,
	"comments":      true,
	"details":       true,
	"notes":         true,
}

// NormalizeFieldValue maps raw user text onto the canonical value for a field
// key. The function is pure and never fails: unknown keys fall back to the
// trimmed, lowercased input.
func NormalizeFieldValue(fieldKey, rawText string) string {
	text := strings.TrimSpace(rawText)
	switch {
	case fieldKey == "name":
		return normalizeName(text)
	case fieldKey == "email" || strings.HasSuffix(fieldKey, "_email"):
		return normalizeEmail(text)
	case freeTextKeys[fieldKey]:
		return stripConversationalPrefix(text)
	default:
		if buckets, ok := enumSynonyms[fieldKey]; ok {
			return normalizeEnum(text, buckets)
		}
		return strings.ToLower(text)
	}
}

// normalizeName strips conversational prefixes and trailing punctuation, then
// title-cases each token.
func normalizeName(text string) string {
	name := stripConversationalPrefix(text)
	name = trailingPunctPattern.ReplaceAllString(name, "")
	return titleCaseWords(name)
}

// normalizeEmail extracts and lowercases the first email-shaped substring.
// Without a match the trimmed input is returned unchanged.
func normalizeEmail(text string) string {
	if match := emailPattern.FindString(text); match != "" {
		return strings.ToLower(match)
	}
	return text
}

// normalizeEnum matches the text against the field's synonym table. The first
// bucket containing any keyword as a substring wins; the fallback is the
// lowercased, trimmed text.
func normalizeEnum(text string, buckets []synonymBucket) string {
	lower := strings.ToLower(text)
	for _, bucket := range buckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				return bucket.canonical
			}
		}
	}
	return strings.TrimSpace(lower)
}

// stripConversationalPrefix removes one leading conversational phrase,
// case-insensitively.
func stripConversationalPrefix(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, prefix := range conversationalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			rest := trimmed[len(prefix):]
			return strings.TrimLeft(rest, " \t,:")
		}
	}
	return trimmed
}
