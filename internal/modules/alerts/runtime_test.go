package alerts

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
	"github.com/clauselens/core/internal/modules/personalization/profile"
)

func testAnalysis() *models.AnalysisModel {
	a := &models.AnalysisModel{
		UserID:     "u1",
		DocumentID: "d1",
		Status:     models.AnalysisStatusDone,
		Provider:   "anthropic",
		Result: &aggregate.Result{
			Categories: map[string]aggregate.CategoryResult{
				"privacy":   {Score: 8.0, Confidence: 0.9, PassesContributing: 3},
				"liability": {Score: 4.5, Confidence: 0.8, PassesContributing: 3},
			},
			OverallRiskScore: 7.5,
			RiskLevel:        aggregate.RiskHigh,
			PassCount:        3,
		},
	}
	a.ID = "a1"
	return a
}

func testProfile() *profile.ComputedProfile {
	return &profile.ComputedProfile{
		AlertThresholds: profile.AlertThresholds{
			Privacy:     4,
			Liability:   5,
			Termination: 6,
			Payment:     6,
			Overall:     5,
		},
		ComputationVersion: "2.1.0",
	}
}

func testContextJSON(t *testing.T) string {
	t.Helper()
	doc := &models.DocumentModel{
		UserID:    "u1",
		Title:     "Example Terms",
		Kind:      "terms",
		SourceURL: "https://example.com/terms",
		WordCount: 1200,
	}
	doc.ID = "d1"
	ctxJSON, err := ruleContextJSON(testAnalysis(), testProfile(), doc)
	if err != nil {
		t.Fatalf("ruleContextJSON: %v", err)
	}
	return ctxJSON
}

func evalSource(t *testing.T, source string) (RuleOutcome, error) {
	t.Helper()
	s := NewService(nil, nil, nil)
	rule := &models.AlertRuleModel{Name: "test-rule", Source: source}
	return s.evaluateRule(rule, testContextJSON(t))
}

func TestEvaluateRuleMatchOnResultScore(t *testing.T) {
	outcome, err := evalSource(t, `
		export default function rule(ctx) {
			return {
				match: ctx.result.overall_risk_score >= 5,
				title: "high overall risk",
				detail: "score " + ctx.result.overall_risk_score,
			}
		}
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match {
		t.Fatal("expected match")
	}
	if outcome.Title != "high overall risk" {
		t.Errorf("title = %q", outcome.Title)
	}
	if outcome.Detail != "score 7.5" {
		t.Errorf("detail = %q", outcome.Detail)
	}
}

func TestEvaluateRuleTypeScriptSource(t *testing.T) {
	outcome, err := evalSource(t, `
		interface Ctx { result: { categories: Record<string, { score: number }> } }
		export default function rule(ctx: Ctx) {
			const privacy = ctx.result.categories["privacy"]
			return { match: privacy !== undefined && privacy.score > 7 }
		}
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match {
		t.Fatal("expected match from typescript rule")
	}
}

func TestEvaluateRuleNoMatch(t *testing.T) {
	outcome, err := evalSource(t, `
		export default (ctx) => ({ match: ctx.result.overall_risk_score > 9 })
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if outcome.Match {
		t.Fatal("expected no match")
	}
}

func TestEvaluateRuleBooleanReturn(t *testing.T) {
	outcome, err := evalSource(t, `export default (ctx) => ctx.result.risk_level === "high"`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match {
		t.Fatal("expected boolean true to count as a match")
	}
}

func TestEvaluateRuleGlobalFunction(t *testing.T) {
	outcome, err := evalSource(t, `
		function rule(ctx) {
			return { match: ctx.analysis.passCount === 3, title: "three passes" }
		}
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match {
		t.Fatal("expected global rule function to run")
	}
}

func TestEvaluateRuleSeesProfileAndDocument(t *testing.T) {
	outcome, err := evalSource(t, `
		export default function rule(ctx) {
			if (!ctx.profile || !ctx.document) return { match: false }
			return {
				match: ctx.profile.alertThresholds.privacy === 4 &&
					ctx.document.kind === "terms" &&
					ctx.document.wordCount === 1200,
			}
		}
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match {
		t.Fatal("profile or document not exposed as expected")
	}
}

func TestEvaluateRuleContextIsFrozen(t *testing.T) {
	// Sloppy-mode script: writes to frozen objects are silent no-ops rather
	// than TypeErrors, so the rule can observe that the value held.
	outcome, err := evalSource(t, `
		function rule(ctx) {
			ctx.result.overall_risk_score = 0
			ctx.result.categories["privacy"].score = 0
			return {
				match: ctx.result.overall_risk_score === 7.5 &&
					ctx.result.categories["privacy"].score === 8,
			}
		}
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match {
		t.Fatal("context was mutable")
	}
}

func TestEvaluateRuleAsyncResult(t *testing.T) {
	outcome, err := evalSource(t, `
		export default async (ctx) => ({ match: true, title: "async" })
	`)
	if err != nil {
		t.Fatalf("evaluateRule: %v", err)
	}
	if !outcome.Match || outcome.Title != "async" {
		t.Errorf("async outcome = %+v", outcome)
	}
}

func TestEvaluateRuleThrownError(t *testing.T) {
	_, err := evalSource(t, `
		export default function rule() { throw new Error("boom") }
	`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want it to carry the thrown message", err.Error())
	}
}

func TestEvaluateRuleRejectedPromise(t *testing.T) {
	_, err := evalSource(t, `
		export default function rule() { return Promise.reject(new Error("nope")) }
	`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error = %q, want rejection reason", err.Error())
	}
}

func TestEvaluateRuleNoEntryPoint(t *testing.T) {
	_, err := evalSource(t, `var unrelated = 42`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rule function is not defined") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestEvaluateRuleTimeout(t *testing.T) {
	saved := ruleExecutionTimeout
	ruleExecutionTimeout = 50 * time.Millisecond
	defer func() { ruleExecutionTimeout = saved }()

	_, err := evalSource(t, `
		export default function rule() { for (;;) {} }
	`)
	if !errors.Is(err, errRuleTimeout) {
		t.Fatalf("err = %v, want rule timeout", err)
	}
}

func TestCompileRuleSourceSyntaxError(t *testing.T) {
	_, err := compileRuleSource(`export default function (`, "broken")
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(err.Error(), "transform failed") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestCompiledCodeUsesStoredCompiled(t *testing.T) {
	s := NewService(nil, nil, nil)
	rule := &models.AlertRuleModel{
		Name:     "stored",
		Source:   `this does not compile either way`,
		Compiled: `module.exports = function () { return true }`,
	}
	code, err := s.compiledCode(rule)
	if err != nil {
		t.Fatalf("compiledCode: %v", err)
	}
	if code != rule.Compiled {
		t.Error("stored compiled code not preferred")
	}
}

func TestParseRuleOutcome(t *testing.T) {
	cases := []struct {
		name    string
		value   interface{}
		want    RuleOutcome
		wantErr bool
	}{
		{name: "nil", value: nil, want: RuleOutcome{}},
		{name: "bool", value: true, want: RuleOutcome{Match: true}},
		{
			name:  "object",
			value: map[string]interface{}{"match": true, "title": " t ", "detail": "d"},
			want:  RuleOutcome{Match: true, Title: "t", Detail: "d"},
		},
		{
			name:  "numeric match",
			value: map[string]interface{}{"match": int64(1)},
			want:  RuleOutcome{Match: true},
		},
		{name: "array", value: []interface{}{1}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseRuleOutcome(tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRuleOutcome: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRuleContextJSONShape(t *testing.T) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(testContextJSON(t)), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"result", "profile", "document", "analysis"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing %q", key)
		}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(decoded["document"], &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	if doc["sourceUrl"] != "https://example.com/terms" {
		t.Errorf("document.sourceUrl = %v", doc["sourceUrl"])
	}
	if doc["wordCount"] != float64(1200) {
		t.Errorf("document.wordCount = %v", doc["wordCount"])
	}
}

func TestRuleContextJSONWithoutProfileOrDocument(t *testing.T) {
	raw, err := ruleContextJSON(testAnalysis(), nil, nil)
	if err != nil {
		t.Fatalf("ruleContextJSON: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["profile"] != nil {
		t.Error("profile should be null")
	}
	if decoded["document"] != nil {
		t.Error("document should be null")
	}
}
