// Package profile derives numeric personalization profiles from
// questionnaire responses. Everything in this package is pure: no clock
// reads, no I/O, no shared state.
package profile

import "time"

// RawPersonalizationResponse is a user's questionnaire answers, grouped
// into the four fixed sections. All enum fields are validated against the
// domains in validate.go before any computation runs.
type RawPersonalizationResponse struct {
	Demographics      Demographics      `json:"demographics"`
	DigitalBehavior   DigitalBehavior   `json:"digitalBehavior"`
	RiskPreferences   RiskPreferences   `json:"riskPreferences"`
	ContextualFactors ContextualFactors `json:"contextualFactors"`
}

type Demographics struct {
	AgeRange     string `json:"ageRange"`
	Jurisdiction string `json:"jurisdiction"`
	Occupation   string `json:"occupation"`
}

type DigitalBehavior struct {
	TechSophistication    string   `json:"techSophistication"`
	PrimaryActivities     []string `json:"primaryActivities"`
	AgreementReadingHabit string   `json:"agreementReadingHabit"`
}

type RiskPreferences struct {
	Privacy   PrivacyPreference   `json:"privacy"`
	Financial FinancialPreference `json:"financial"`
	Legal     LegalPreference     `json:"legal"`
}

type PrivacyPreference struct {
	OverallImportance  string `json:"overallImportance"`
	DataSharingComfort string `json:"dataSharingComfort"`
}

type FinancialPreference struct {
	OverallImportance  string `json:"overallImportance"`
	AutoRenewalComfort string `json:"autoRenewalComfort"`
}

type LegalPreference struct {
	OverallImportance    string `json:"overallImportance"`
	ArbitrationAwareness string `json:"arbitrationAwareness"`
}

type ContextualFactors struct {
	DependentStatus      string           `json:"dependentStatus"`
	SpecialCircumstances []string         `json:"specialCircumstances"`
	AlertPreferences     AlertPreferences `json:"alertPreferences"`
}

type AlertPreferences struct {
	InterruptionTiming  string `json:"interruptionTiming"`
	AlertFrequencyLimit string `json:"alertFrequencyLimit"`
	// PreferredExplanationStyle is optional; empty means "no explicit
	// preference" and the occupation/age defaults apply.
	PreferredExplanationStyle string `json:"preferredExplanationStyle,omitempty"`
}

// RiskTolerance holds per-category tolerance scores in [0,10]. Higher means
// the user accepts more risk in that dimension.
type RiskTolerance struct {
	Privacy   float64 `json:"privacy"`
	Financial float64 `json:"financial"`
	Legal     float64 `json:"legal"`
	Overall   float64 `json:"overall"`
}

// AlertThresholds holds per-category alert trigger scores in [0,10]. An
// aggregated category score at or above its threshold raises an alert.
type AlertThresholds struct {
	Privacy     float64 `json:"privacy"`
	Liability   float64 `json:"liability"`
	Termination float64 `json:"termination"`
	Payment     float64 `json:"payment"`
	Overall     float64 `json:"overall"`
}

// Style selects how analysis findings are explained to the user.
type Style string

const (
	StyleSimpleProtective      Style = "simple_protective"
	StyleBalancedEducational   Style = "balanced_educational"
	StyleTechnicalEfficient    Style = "technical_efficient"
	StyleComprehensiveCautious Style = "comprehensive_cautious"
)

// ComputedProfile is the point-in-time output of Compute. It is immutable:
// any change to the underlying response regenerates the whole profile.
type ComputedProfile struct {
	RiskTolerance      RiskTolerance   `json:"riskTolerance"`
	AlertThresholds    AlertThresholds `json:"alertThresholds"`
	ExplanationStyle   Style           `json:"explanationStyle"`
	ProfileTags        []string        `json:"profileTags"`
	ComputedAt         time.Time       `json:"computedAt"`
	ComputationVersion string          `json:"computationVersion"`
}

// ThresholdFor returns the alert threshold for a risk category name as used
// by the analysis aggregator. Unknown categories fall back to the overall
// threshold.
func (t AlertThresholds) ThresholdFor(category string) float64 {
	switch category {
	case "privacy":
		return t.Privacy
	case "liability":
		return t.Liability
	case "termination":
		return t.Termination
	case "payment":
		return t.Payment
	default:
		return t.Overall
	}
}
