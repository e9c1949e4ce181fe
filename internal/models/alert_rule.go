package models

import "time"

// AlertRuleModel stores a user-authored alert rule. Source is the TypeScript
// or JavaScript the user wrote; Compiled is the bundled script actually
// evaluated against analysis results.
type AlertRuleModel struct {
	Base
	UserID        string     `json:"user_id"    gorm:"index;not null"`
	Name          string     `json:"name"       gorm:"not null;index"`
	Comment       string     `json:"comment"`
	Source        string     `json:"source"     gorm:"type:longtext"`
	Compiled      string     `json:"-"          gorm:"type:longtext"`
	Enable        bool       `json:"enable"     gorm:"default:true"`
	BuiltIn       bool       `json:"built_in"   gorm:"default:false"`
	LastError     string     `json:"last_error,omitempty" gorm:"type:text"`
	LastMatchedAt *time.Time `json:"last_matched_at"`
}

func (AlertRuleModel) TableName() string { return "alert_rules" }

// AlertEventModel records one fired alert so the digest job and the
// dashboard can list what was raised and when.
type AlertEventModel struct {
	Base
	UserID     string  `json:"user_id"     gorm:"index;not null"`
	AnalysisID string  `json:"analysis_id" gorm:"index;not null"`
	RuleID     string  `json:"rule_id"     gorm:"index"`
	Category   string  `json:"category"    gorm:"index"`
	Score      float64 `json:"score"`
	Threshold  float64 `json:"threshold"`
	Message    string  `json:"message"     gorm:"type:text"`
	Notified   bool    `json:"notified"    gorm:"default:false"`
}

func (AlertEventModel) TableName() string { return "alert_events" }
