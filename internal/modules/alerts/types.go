package alerts

import (
	"errors"
	"time"
)

var (
	errRuleNotFound      = errors.New("alert rule not found")
	errBuiltInRule       = errors.New("built-in rules only allow toggling enable and editing the comment")
	errRuleTimeout       = errors.New("rule evaluation timeout")
	errNoAnalysisForTest = errors.New("no completed analysis to test against")
)

type CreateRuleDTO struct {
	Name    string `json:"name"    binding:"required,max=120"`
	Comment string `json:"comment" binding:"max=500"`
	Source  string `json:"source"  binding:"required"`
	Enable  *bool  `json:"enable"`
}

type UpdateRuleDTO struct {
	Name    *string `json:"name"    binding:"omitempty,max=120"`
	Comment *string `json:"comment" binding:"omitempty,max=500"`
	Source  *string `json:"source"`
	Enable  *bool   `json:"enable"`
}

// TestRuleDTO dry-runs a rule source against a real analysis without saving
// anything. When AnalysisID is empty the user's most recent completed
// analysis is used.
type TestRuleDTO struct {
	Source     string `json:"source" binding:"required"`
	AnalysisID string `json:"analysis_id"`
}

// RuleOutcome is what a rule evaluation produced. A bare boolean return is
// accepted and mapped onto Match.
type RuleOutcome struct {
	Match  bool   `json:"match"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type TestRuleResult struct {
	RuleOutcome
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type compiledRule struct {
	UpdatedAt time.Time
	Code      string
}
