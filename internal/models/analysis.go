package models

import (
	"time"

	"github.com/clauselens/core/internal/modules/analysis/aggregate"
)

// Analysis lifecycle states.
const (
	AnalysisStatusPending  = "pending"
	AnalysisStatusRunning  = "running"
	AnalysisStatusDone     = "done"
	AnalysisStatusFailed   = "failed"
	AnalysisStatusCanceled = "canceled"
)

// AnalysisModel records one analysis run over a document. Raw passes are
// kept alongside the aggregated result so a run can be re-aggregated against
// a newer profile without calling the model providers again.
type AnalysisModel struct {
	Base
	UserID          string            `json:"user_id"     gorm:"index;not null"`
	DocumentID      string            `json:"document_id" gorm:"index;not null"`
	Status          string            `json:"status"      gorm:"index;default:'pending'"`
	Provider        string            `json:"provider"`
	RequestedPasses int               `json:"requested_passes"`
	Passes          []aggregate.Pass  `json:"passes,omitempty" gorm:"type:longtext;serializer:json"`
	Result          *aggregate.Result `json:"result,omitempty" gorm:"type:longtext;serializer:json"`
	OverallScore    float64           `json:"overall_score"    gorm:"index"`
	RiskLevel       string            `json:"risk_level"       gorm:"index"`
	Error           string            `json:"error,omitempty"  gorm:"type:text"`
	FinishedAt      *time.Time        `json:"finished_at"`
	ReportMarkdown  string            `json:"report_markdown,omitempty" gorm:"type:longtext"`
	ReportHTML      string            `json:"report_html,omitempty"     gorm:"type:longtext"`
}

func (AnalysisModel) TableName() string { return "analyses" }
