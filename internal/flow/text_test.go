package flow

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Full Name", "full_name"},
		{"  E-mail  Address ", "e_mail_address"},
		{"already_snake", "already_snake"},
		{"Budget (USD)", "budget_usd"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := snakeCase(tc.input); got != tc.want {
			t.Errorf("snakeCase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestHumanizeKey(t *testing.T) {
	if got := humanizeKey("issue_details"); got != "Issue Details" {
		t.Errorf("humanizeKey = %q, want Issue Details", got)
	}
}

func TestSplitTopLevel(t *testing.T) {
	got := splitTopLevel("a (b, c), d, e", ',')
	want := []string{"a (b, c)", " d", " e"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitTopLevel mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitTopLevelWord(t *testing.T) {
	got := splitTopLevelWord("name and email (cc and bcc) and phone", "and")
	want := []string{"name ", " email (cc and bcc) ", " phone"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("splitTopLevelWord mismatch (-want +got):\n%s", diff)
	}
	// "android" must not split on the embedded word.
	if got := splitTopLevelWord("android handset", "and"); len(got) != 1 {
		t.Errorf("splitTopLevelWord split inside a word: %q", got)
	}
}

func TestExtractBalancedJSON(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`Sure: {"a": 1, "b": {"c": 2}} there`, `{"a": 1, "b": {"c": 2}}`},
		{`{"s": "has } brace"}`, `{"s": "has } brace"}`},
		{`no object here`, ""},
		{`{"unterminated": 1`, ""},
	}
	for _, tc := range tests {
		if got := extractBalancedJSON(tc.input); got != tc.want {
			t.Errorf("extractBalancedJSON(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeQuotes(t *testing.T) {
	if got := normalizeQuotes("“hello” ‘there’"); got != `"hello" 'there'` {
		t.Errorf("normalizeQuotes = %q", got)
	}
}
