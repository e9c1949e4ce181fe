package reports

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
)

var reportEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithXHTML(),
	),
)

// BuildMarkdown assembles the report for a finished analysis: a deterministic
// skeleton built from the aggregated result, with the model-written narrative
// inserted when one was generated. Pure; callers persist the output.
func BuildMarkdown(a *models.AnalysisModel, doc *models.DocumentModel, narrative string) string {
	var b strings.Builder

	title := "Untitled document"
	if doc != nil && strings.TrimSpace(doc.Title) != "" {
		title = strings.TrimSpace(doc.Title)
	}
	fmt.Fprintf(&b, "# Risk Report: %s\n\n", title)

	meta := make([]string, 0, 4)
	if doc != nil && doc.Kind != "" {
		meta = append(meta, "Kind: "+doc.Kind)
	}
	if a.FinishedAt != nil {
		meta = append(meta, "Analyzed: "+a.FinishedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if a.Provider != "" {
		meta = append(meta, "Provider: "+a.Provider)
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "%s\n\n", strings.Join(meta, " · "))
	}

	result := a.Result
	if result == nil {
		b.WriteString("_No aggregated result is available for this analysis._\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**Overall risk: %.1f / 10 (%s)** · %d contributing %s\n\n",
		result.OverallRiskScore, result.RiskLevel, result.PassCount, pluralPasses(result.PassCount))

	if len(result.Categories) > 0 {
		b.WriteString("| Category | Score | Confidence | Passes |\n")
		b.WriteString("| --- | ---: | ---: | ---: |\n")
		for _, name := range sortedCategoryNames(result.Categories) {
			cat := result.Categories[name]
			fmt.Fprintf(&b, "| %s | %.1f | %.2f | %d |\n",
				name, cat.Score, cat.Confidence, cat.PassesContributing)
		}
		b.WriteString("\n")
	}

	if narrative = strings.TrimSpace(narrative); narrative != "" {
		b.WriteString("## Assessment\n\n")
		b.WriteString(narrative)
		b.WriteString("\n\n")
	}

	if flagged := flaggedCategories(result.Alerts); len(flagged) > 0 || result.OverallAlert {
		b.WriteString("## Alerts\n\n")
		for _, name := range flagged {
			fmt.Fprintf(&b, "- **%s** scored above your configured threshold\n", name)
		}
		if result.OverallAlert {
			b.WriteString("- **overall** risk scored above your configured threshold\n")
		}
		b.WriteString("\n")
	}

	if len(result.KeyPoints) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, point := range result.KeyPoints {
			point = strings.TrimSpace(point)
			if point == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s\n", point)
		}
		b.WriteString("\n")
	}

	if summary := firstNonEmptySummary(result.Summaries); summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// RenderHTML converts report markdown into an HTML fragment.
func RenderHTML(markdown string) string {
	var out bytes.Buffer
	if err := reportEngine.Convert([]byte(markdown), &out); err != nil {
		return "<pre>" + template.HTMLEscapeString(markdown) + "</pre>"
	}
	return out.String()
}

func sortedCategoryNames(categories map[string]aggregate.CategoryResult) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func flaggedCategories(alerts map[string]bool) []string {
	names := make([]string, 0, len(alerts))
	for name, flagged := range alerts {
		if flagged {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func firstNonEmptySummary(summaries []string) string {
	for _, s := range summaries {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func pluralPasses(n int) string {
	if n == 1 {
		return "pass"
	}
	return "passes"
}
