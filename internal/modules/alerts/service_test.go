package alerts

import (
	"testing"

	"github.com/clauselens/core/internal/models"
)

func TestBuiltinEventsFromFlags(t *testing.T) {
	a := testAnalysis()
	a.Result.Alerts = map[string]bool{
		"privacy":   true,
		"liability": true,
		"payment":   false,
	}
	a.Result.OverallAlert = true

	events := builtinEvents(a, testProfile())

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	// Category events are sorted by name; the overall event comes last.
	if events[0].Category != "liability" || events[1].Category != "privacy" {
		t.Errorf("category order = %s, %s", events[0].Category, events[1].Category)
	}
	if events[0].Score != 4.5 || events[0].Threshold != 5 {
		t.Errorf("liability event = score %.1f threshold %.1f", events[0].Score, events[0].Threshold)
	}
	if events[1].Score != 8.0 || events[1].Threshold != 4 {
		t.Errorf("privacy event = score %.1f threshold %.1f", events[1].Score, events[1].Threshold)
	}

	overall := events[2]
	if overall.Category != "overall" {
		t.Fatalf("last event category = %s", overall.Category)
	}
	if overall.Score != 7.5 || overall.Threshold != 5 {
		t.Errorf("overall event = score %.1f threshold %.1f", overall.Score, overall.Threshold)
	}

	for _, ev := range events {
		if ev.UserID != "u1" || ev.AnalysisID != "a1" {
			t.Errorf("event not bound to analysis: %+v", ev)
		}
		if ev.RuleID != "" {
			t.Errorf("builtin event carries a rule id: %+v", ev)
		}
	}
}

func TestBuiltinEventsWithoutProfile(t *testing.T) {
	a := testAnalysis()
	a.Result.Alerts = map[string]bool{"privacy": true}

	if events := builtinEvents(a, nil); events != nil {
		t.Errorf("got %d events, want none without a profile", len(events))
	}
}

func TestBuiltinEventsNoFlagsRaised(t *testing.T) {
	a := testAnalysis()
	a.Result.Alerts = map[string]bool{"privacy": false}
	a.Result.OverallAlert = false

	if events := builtinEvents(a, testProfile()); len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestBuiltinEventsNilResult(t *testing.T) {
	a := &models.AnalysisModel{}
	if events := builtinEvents(a, testProfile()); events != nil {
		t.Error("expected nil for analysis without a result")
	}
}

func TestRuleMessage(t *testing.T) {
	cases := []struct {
		name    string
		outcome RuleOutcome
		rule    string
		want    string
	}{
		{
			name:    "title only",
			outcome: RuleOutcome{Title: "Privacy red flag"},
			rule:    "my-rule",
			want:    "Privacy red flag",
		},
		{
			name:    "title and detail",
			outcome: RuleOutcome{Title: "Privacy red flag", Detail: "broad data sharing"},
			rule:    "my-rule",
			want:    "Privacy red flag: broad data sharing",
		},
		{
			name:    "no title falls back to rule name",
			outcome: RuleOutcome{Detail: "broad data sharing"},
			rule:    "my-rule",
			want:    "my-rule: broad data sharing",
		},
		{
			name: "empty outcome",
			rule: "my-rule",
			want: "my-rule",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ruleMessage(tc.outcome, tc.rule); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
