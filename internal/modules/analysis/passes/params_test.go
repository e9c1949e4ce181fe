package passes

import (
	"strings"
	"testing"

	"github.com/clauselens/core/internal/modules/personalization/profile"
)

func TestBuildPassContextNilProfile(t *testing.T) {
	if got := BuildPassContext(nil); got != nil {
		t.Fatalf("BuildPassContext(nil) = %+v, want nil", got)
	}
	if hints := (*PassContext)(nil).PromptHints(); hints != "" {
		t.Errorf("nil context hints = %q, want empty", hints)
	}
}

func TestBuildPassContextSelectsFields(t *testing.T) {
	p := &profile.ComputedProfile{
		ExplanationStyle: profile.StyleSimpleProtective,
		ProfileTags:      []string{"privacy_focused", " ", "has_dependents"},
	}
	ctx := BuildPassContext(p)
	if ctx == nil {
		t.Fatal("context is nil")
	}
	if ctx.Style != profile.StyleSimpleProtective {
		t.Errorf("style = %s", ctx.Style)
	}
	if len(ctx.Tags) != 2 {
		t.Errorf("tags = %v, want blanks dropped", ctx.Tags)
	}

	hints := ctx.PromptHints()
	if !strings.Contains(hints, "plain, non-technical") {
		t.Errorf("hints %q missing style directive", hints)
	}
	if !strings.Contains(hints, "privacy_focused, has_dependents") {
		t.Errorf("hints %q missing tags", hints)
	}
}

func TestPromptHintsUnknownStyle(t *testing.T) {
	ctx := &PassContext{Style: profile.Style("martian"), Tags: []string{"a"}}
	hints := ctx.PromptHints()
	if strings.Contains(hints, "martian") {
		t.Errorf("unknown style leaked into hints: %q", hints)
	}
	if !strings.Contains(hints, "Reader traits: a.") {
		t.Errorf("hints = %q, want tags only", hints)
	}
}

func TestThresholdSetPassThrough(t *testing.T) {
	if got := ThresholdSet(nil); got != nil {
		t.Fatalf("ThresholdSet(nil) = %+v, want nil", got)
	}

	p := &profile.ComputedProfile{
		AlertThresholds: profile.AlertThresholds{
			Privacy: 3.5, Liability: 6, Termination: 7, Payment: 5, Overall: 4,
		},
	}
	got := ThresholdSet(p)
	if got == nil {
		t.Fatal("thresholds are nil")
	}
	if got.Privacy != 3.5 || got.Overall != 4 {
		t.Errorf("thresholds = %+v, not a pass-through", got)
	}

	// The returned copy must not alias the profile.
	got.Privacy = 9
	if p.AlertThresholds.Privacy != 3.5 {
		t.Error("mutating the returned set changed the profile")
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	pctx := &PassContext{Style: profile.StyleTechnicalEfficient, Tags: []string{"tech_savvy"}}
	system, prompt := BuildAnalysisPrompt("tos", "Clause text here.", pctx)

	if !strings.Contains(system, "Output MUST be valid JSON only") {
		t.Error("system prompt lost the JSON directive")
	}
	if !strings.Contains(prompt, "DOCUMENT_KIND: terms") {
		t.Errorf("prompt %q did not normalize the kind", prompt)
	}
	if !strings.Contains(prompt, "READER_PROFILE:") || !strings.Contains(prompt, "tech_savvy") {
		t.Errorf("prompt %q missing reader profile", prompt)
	}
	if !strings.Contains(prompt, "<<<DOCUMENT\nClause text here.\nDOCUMENT") {
		t.Errorf("prompt %q missing fenced document", prompt)
	}

	_, generic := BuildAnalysisPrompt("weird", "x", nil)
	if strings.Contains(generic, "READER_PROFILE:") {
		t.Errorf("generic prompt %q should omit reader profile", generic)
	}
	if !strings.Contains(generic, "DOCUMENT_KIND: other") {
		t.Errorf("generic prompt %q kind fallback failed", generic)
	}
}

func TestBuildReportPrompt(t *testing.T) {
	system, prompt := BuildReportPrompt("de-DE", `{"overall_risk_score":7}`, nil)
	if !strings.Contains(system, "Markdown only") {
		t.Error("report system prompt missing markdown directive")
	}
	if !strings.Contains(prompt, "TARGET_LANGUAGE: German") {
		t.Errorf("prompt %q did not resolve language", prompt)
	}
	if !strings.Contains(prompt, `<<<ANALYSIS`) {
		t.Errorf("prompt %q missing analysis fence", prompt)
	}

	_, fallback := BuildReportPrompt("xx", "{}", nil)
	if !strings.Contains(fallback, "TARGET_LANGUAGE: English") {
		t.Errorf("prompt %q unknown language should fall back to English", fallback)
	}
}
