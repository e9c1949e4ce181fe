package models

import (
	"time"

	"github.com/clauselens/core/internal/modules/personalization/profile"
)

// PersonalizationProfileModel persists one questionnaire response per user
// together with the profile computed from it. Recomputing overwrites the
// computed columns in place; the response is kept so profiles can be
// recomputed when the multiplier tables change.
type PersonalizationProfileModel struct {
	Base
	UserID             string                             `json:"user_id"             gorm:"uniqueIndex;not null"`
	Response           profile.RawPersonalizationResponse `json:"response"            gorm:"type:longtext;serializer:json"`
	RiskTolerance      profile.RiskTolerance              `json:"risk_tolerance"      gorm:"type:text;serializer:json"`
	AlertThresholds    profile.AlertThresholds            `json:"alert_thresholds"    gorm:"type:text;serializer:json"`
	ExplanationStyle   string                             `json:"explanation_style"`
	ProfileTags        StringArray                        `json:"profile_tags"        gorm:"type:longtext"`
	ComputedAt         time.Time                          `json:"computed_at"`
	ComputationVersion string                             `json:"computation_version" gorm:"index"`
}

func (PersonalizationProfileModel) TableName() string { return "personalization_profiles" }

// Computed reassembles the stored columns into the engine's result shape.
func (m *PersonalizationProfileModel) Computed() *profile.ComputedProfile {
	return &profile.ComputedProfile{
		RiskTolerance:      m.RiskTolerance,
		AlertThresholds:    m.AlertThresholds,
		ExplanationStyle:   profile.Style(m.ExplanationStyle),
		ProfileTags:        []string(m.ProfileTags),
		ComputedAt:         m.ComputedAt,
		ComputationVersion: m.ComputationVersion,
	}
}

// ApplyComputed writes a freshly computed profile into the model columns.
func (m *PersonalizationProfileModel) ApplyComputed(p *profile.ComputedProfile) {
	m.RiskTolerance = p.RiskTolerance
	m.AlertThresholds = p.AlertThresholds
	m.ExplanationStyle = string(p.ExplanationStyle)
	m.ProfileTags = StringArray(p.ProfileTags)
	m.ComputedAt = p.ComputedAt
	m.ComputationVersion = p.ComputationVersion
}
