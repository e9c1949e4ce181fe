// Package aggregate combines independent AI analysis passes into a single
// confidence-weighted result. Pure functions only: no I/O, no clock, no
// retries; safe for concurrent use.
package aggregate

// CategoryScore is one pass's scoring of a single risk category.
type CategoryScore struct {
	Score      float64 `json:"score"`      // [0,10]
	Confidence float64 `json:"confidence"` // [0,1]
}

// Pass is one independent AI scoring of a document. Free-text fields pass
// through aggregation unweighted.
type Pass struct {
	Categories map[string]CategoryScore `json:"categories"`
	Summary    string                   `json:"summary,omitempty"`
	KeyPoints  []string                 `json:"keyPoints,omitempty"`
	Provider   string                   `json:"provider,omitempty"`
	Model      string                   `json:"model,omitempty"`
}

// CategoryResult is the combined outcome for one category.
type CategoryResult struct {
	Score              float64 `json:"score"`
	Confidence         float64 `json:"confidence"`
	PassesContributing int     `json:"passes_contributing"`
}

// RiskLevel discretizes an overall risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Result is the aggregate of all contributing passes. Categories reported
// by zero passes are absent from the map, never defaulted. Alerts is
// populated only when a profile was supplied.
type Result struct {
	Categories       map[string]CategoryResult `json:"categories"`
	OverallRiskScore float64                   `json:"overall_risk_score"`
	RiskLevel        RiskLevel                 `json:"risk_level"`
	PassCount        int                       `json:"pass_count"`
	Summaries        []string                  `json:"summaries,omitempty"`
	KeyPoints        []string                  `json:"key_points,omitempty"`
	Alerts           map[string]bool           `json:"alerts,omitempty"`
	OverallAlert     bool                      `json:"overall_alert,omitempty"`
}
