// Package flow implements the FormDesk conversation engine: the per-session
// turn state machine, the schema parsers, and the value normalization layer.
//
// This file holds the shared pure text helpers used by the parsers, the
// editor, and the normalizer.
package flow

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonKeyChars      = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	unicodeQuoteRepl = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// snakeCase converts arbitrary text into a snake_case field key.
func snakeCase(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	key = nonKeyChars.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// humanizeKey renders a snake_case key as a title-cased label.
func humanizeKey(key string) string {
	return titleCaseWords(strings.ReplaceAll(key, "_", " "))
}

// titleCaseWords upper-cases the first letter of each whitespace-delimited token.
func titleCaseWords(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// normalizeQuotes replaces Unicode quotes with their ASCII equivalents.
func normalizeQuotes(text string) string {
	return unicodeQuoteRepl.Replace(text)
}

// collapseWhitespace trims and collapses interior whitespace runs to one space.
func collapseWhitespace(text string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
}

// splitTopLevel splits text on any of the separator runes, ignoring
// separators nested inside parentheses.
func splitTopLevel(text string, seps ...rune) []string {
	isSep := make(map[rune]bool, len(seps))
	for _, r := range seps {
		isSep[r] = true
	}
	var parts []string
	var cur strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case depth == 0 && isSep[r]:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// splitTopLevelWord splits text on a whole word (case-insensitive), ignoring
// occurrences nested inside parentheses.
func splitTopLevelWord(text, word string) []string {
	lower := strings.ToLower(text)
	word = strings.ToLower(word)
	var parts []string
	depth := 0
	start := 0
	for i := 0; i+len(word) <= len(lower); i++ {
		switch lower[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
		if depth != 0 || lower[i:i+len(word)] != word {
			continue
		}
		beforeOK := i == 0 || !isWordByte(lower[i-1])
		afterOK := i+len(word) == len(lower) || !isWordByte(lower[i+len(word)])
		if beforeOK && afterOK {
			parts = append(parts, text[start:i])
			start = i + len(word)
			i += len(word) - 1
		}
	}
	parts = append(parts, text[start:])
	return parts
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// extractBalancedJSON returns the first balanced {...} substring of text,
// or "" if none exists. Braces inside double-quoted strings are ignored.
func extractBalancedJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
