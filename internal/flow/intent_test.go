package flow

import (
	"context"
	"testing"
)

func TestClassifyReviewIntentHeuristic(t *testing.T) {
	tests := []struct {
		input string
		want  ReviewIntent
	}{
		{"yes", ReviewIntentYes},
		{"Yep, looks good", ReviewIntentYes},
		{"go ahead", ReviewIntentYes},
		{"no changes needed", ReviewIntentYes},
		{"I don't want to make any changes", ReviewIntentYes},
		{"no", ReviewIntentChange},
		{"can you edit the email field", ReviewIntentChange},
		{"I want to make some changes", ReviewIntentChange},
		{"don't proceed", ReviewIntentChange},
		{"it's not ready yet", ReviewIntentChange},
		{"what is this?", ReviewIntentAmbiguous},
		{"add field budget:number", ReviewIntentAmbiguous},
	}
	for _, tc := range tests {
		if got := ClassifyReviewIntent(context.Background(), nil, tc.input); got != tc.want {
			t.Errorf("ClassifyReviewIntent(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestClassifyConfirmation(t *testing.T) {
	tests := []struct {
		input string
		want  ConfirmIntent
	}{
		{"yes", ConfirmIntentYes},
		{"Okay, correct", ConfirmIntentYes},
		{"no that's wrong", ConfirmIntentNo},
		{"nope", ConfirmIntentCorrection},
		{"john.doe@example.com", ConfirmIntentCorrection},
		{"actually it's Jane Doe", ConfirmIntentCorrection},
	}
	for _, tc := range tests {
		if got := ClassifyConfirmation(tc.input); got != tc.want {
			t.Errorf("ClassifyConfirmation(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}
