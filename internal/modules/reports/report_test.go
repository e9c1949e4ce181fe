package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
)

func reportAnalysis() *models.AnalysisModel {
	finished := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	a := &models.AnalysisModel{
		Status:          models.AnalysisStatusDone,
		Provider:        "Anthropic/claude-haiku-4-5",
		RequestedPasses: 3,
		OverallScore:    7.5,
		RiskLevel:       "high",
		FinishedAt:      &finished,
		Result: &aggregate.Result{
			Categories: map[string]aggregate.CategoryResult{
				"privacy":   {Score: 8.0, Confidence: 0.9, PassesContributing: 3},
				"liability": {Score: 4.5, Confidence: 0.8, PassesContributing: 3},
			},
			OverallRiskScore: 7.5,
			RiskLevel:        aggregate.RiskHigh,
			PassCount:        3,
			Summaries:        []string{"", "Broad data sharing with affiliates."},
			KeyPoints:        []string{"May share data with third parties", ""},
			Alerts:           map[string]bool{"privacy": true, "liability": false},
			OverallAlert:     true,
		},
	}
	a.ID = "a1"
	return a
}

func reportDocument() *models.DocumentModel {
	return &models.DocumentModel{
		Title: "Example Terms of Service",
		Kind:  models.DocumentKindTerms,
	}
}

func TestBuildMarkdownSkeleton(t *testing.T) {
	md := BuildMarkdown(reportAnalysis(), reportDocument(), "")

	for _, want := range []string{
		"# Risk Report: Example Terms of Service",
		"Kind: terms",
		"Analyzed: 2026-03-14 09:30 UTC",
		"Provider: Anthropic/claude-haiku-4-5",
		"**Overall risk: 7.5 / 10 (high)** · 3 contributing passes",
		"| Category | Score | Confidence | Passes |",
		"| liability | 4.5 | 0.80 | 3 |",
		"| privacy | 8.0 | 0.90 | 3 |",
		"## Alerts",
		"- **privacy** scored above your configured threshold",
		"- **overall** risk scored above your configured threshold",
		"## Key Points",
		"- May share data with third parties",
		"## Summary",
		"Broad data sharing with affiliates.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q\n%s", want, md)
		}
	}

	// Categories are emitted in name order.
	if strings.Index(md, "| liability") > strings.Index(md, "| privacy") {
		t.Error("categories are not sorted by name")
	}
	if strings.Contains(md, "## Assessment") {
		t.Error("assessment section present without a narrative")
	}
}

func TestBuildMarkdownIsDeterministic(t *testing.T) {
	a := reportAnalysis()
	doc := reportDocument()
	first := BuildMarkdown(a, doc, "")
	for i := 0; i < 10; i++ {
		if got := BuildMarkdown(a, doc, ""); got != first {
			t.Fatal("identical inputs produced different reports")
		}
	}
}

func TestBuildMarkdownWithNarrative(t *testing.T) {
	md := BuildMarkdown(reportAnalysis(), reportDocument(), "  This agreement leans heavily against the reader.  ")

	if !strings.Contains(md, "## Assessment\n\nThis agreement leans heavily against the reader.") {
		t.Errorf("narrative not inserted:\n%s", md)
	}
	// Narrative comes before the alerts section.
	if strings.Index(md, "## Assessment") > strings.Index(md, "## Alerts") {
		t.Error("assessment should precede alerts")
	}
}

func TestBuildMarkdownWithoutDocument(t *testing.T) {
	md := BuildMarkdown(reportAnalysis(), nil, "")
	if !strings.Contains(md, "# Risk Report: Untitled document") {
		t.Errorf("missing title fallback:\n%s", md)
	}
}

func TestBuildMarkdownWithoutResult(t *testing.T) {
	a := reportAnalysis()
	a.Result = nil
	md := BuildMarkdown(a, reportDocument(), "")
	if !strings.Contains(md, "No aggregated result") {
		t.Errorf("missing empty-result note:\n%s", md)
	}
}

func TestBuildMarkdownWithoutProfileAlerts(t *testing.T) {
	a := reportAnalysis()
	a.Result.Alerts = nil
	a.Result.OverallAlert = false
	md := BuildMarkdown(a, reportDocument(), "")
	if strings.Contains(md, "## Alerts") {
		t.Errorf("alerts section present without flags:\n%s", md)
	}
}

func TestBuildMarkdownSinglePassWording(t *testing.T) {
	a := reportAnalysis()
	a.Result.PassCount = 1
	md := BuildMarkdown(a, reportDocument(), "")
	if !strings.Contains(md, "1 contributing pass\n") {
		t.Errorf("singular pass wording missing:\n%s", md)
	}
}

func TestRenderHTMLTables(t *testing.T) {
	md := BuildMarkdown(reportAnalysis(), reportDocument(), "")
	html := RenderHTML(md)

	for _, want := range []string{"<h1", "<table>", "<td", "privacy"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderHTMLHeadings(t *testing.T) {
	html := RenderHTML("## Alerts\n\n- one\n")
	if !strings.Contains(html, "<h2") || !strings.Contains(html, "<li>one</li>") {
		t.Errorf("unexpected HTML: %s", html)
	}
}
