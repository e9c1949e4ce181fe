package profile

import "fmt"

// ValidationError reports the first missing or out-of-domain field of a
// questionnaire response. Value is empty when the field was missing.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("personalization response invalid: %s is required", e.Field)
	}
	return fmt.Sprintf("personalization response invalid: %s has unknown value %q", e.Field, e.Value)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field}
}

func invalidValue(field, value string) *ValidationError {
	return &ValidationError{Field: field, Value: value}
}

// Closed answer domains. These are the only values Compute accepts; the
// extension UI offers exactly these options.
var (
	ageRanges     = []string{"under_18", "18_25", "26_40", "41_55", "56_70", "over_70"}
	jurisdictions = []string{"us", "eu", "uk", "ca", "au", "other"}
	occupations   = []string{
		"technology", "legal_compliance", "healthcare", "finance", "education",
		"student", "retired", "creative_media", "business_management",
		"government", "service_industry", "other", "prefer_not_to_say",
	}

	techSophisticationLevels = []string{"basic", "intermediate", "advanced", "expert"}
	primaryActivityOptions   = []string{
		"online_shopping", "social_media", "banking_finance", "work_productivity",
		"gaming", "streaming", "smart_home", "healthcare_services",
	}
	readingHabits = []string{"never", "skim", "key_sections", "thorough"}

	importanceLevels = []string{
		"extremely_important", "very_important", "moderately_important",
		"not_very_important",
	}
	dataSharingComfortLevels = []string{
		"very_uncomfortable", "somewhat_uncomfortable", "neutral", "comfortable",
	}
	autoRenewalComfortLevels = []string{
		"always_cancel", "want_warnings", "case_by_case", "comfortable",
	}
	arbitrationAwarenessLevels = []string{"unaware", "vaguely_aware", "aware", "very_familiar"}

	dependentStatuses = []string{
		"none", "partner", "children", "elderly_parents",
		"children_and_parents", "other_dependents",
	}
	specialCircumstanceOptions = []string{
		"none", "recent_identity_theft", "prior_legal_dispute",
		"small_business_owner", "frequent_financial_transactions",
		"limited_english_proficiency", "accessibility_needs", "public_figure",
	}
	interruptionTimings = []string{
		"immediate", "before_agreeing", "daily_digest", "weekly_summary",
		"only_critical",
	}
	alertFrequencyLimits = []string{
		"unlimited", "ten_per_day", "five_per_day", "two_per_day", "one_per_day",
	}
	preferredStyles = []string{"simple", "balanced", "technical", "detailed"}
)

func inDomain(value string, domain []string) bool {
	for _, v := range domain {
		if v == value {
			return true
		}
	}
	return false
}

func checkEnum(field, value string, domain []string) *ValidationError {
	if value == "" {
		return missingField(field)
	}
	if !inDomain(value, domain) {
		return invalidValue(field, value)
	}
	return nil
}

func checkMulti(field string, values []string, domain []string, required bool) *ValidationError {
	if required && len(values) == 0 {
		return missingField(field)
	}
	for _, v := range values {
		if v == "" {
			return missingField(field)
		}
		if !inDomain(v, domain) {
			return invalidValue(field, v)
		}
	}
	return nil
}

// Validate checks every required field and enum domain of a response.
// Fields are checked in declaration order so the reported error is
// deterministic for a given input.
func Validate(r RawPersonalizationResponse) error {
	checks := []*ValidationError{
		checkEnum("demographics.ageRange", r.Demographics.AgeRange, ageRanges),
		checkEnum("demographics.jurisdiction", r.Demographics.Jurisdiction, jurisdictions),
		checkEnum("demographics.occupation", r.Demographics.Occupation, occupations),

		checkEnum("digitalBehavior.techSophistication", r.DigitalBehavior.TechSophistication, techSophisticationLevels),
		checkMulti("digitalBehavior.primaryActivities", r.DigitalBehavior.PrimaryActivities, primaryActivityOptions, true),
		checkEnum("digitalBehavior.agreementReadingHabit", r.DigitalBehavior.AgreementReadingHabit, readingHabits),

		checkEnum("riskPreferences.privacy.overallImportance", r.RiskPreferences.Privacy.OverallImportance, importanceLevels),
		checkEnum("riskPreferences.privacy.dataSharingComfort", r.RiskPreferences.Privacy.DataSharingComfort, dataSharingComfortLevels),
		checkEnum("riskPreferences.financial.overallImportance", r.RiskPreferences.Financial.OverallImportance, importanceLevels),
		checkEnum("riskPreferences.financial.autoRenewalComfort", r.RiskPreferences.Financial.AutoRenewalComfort, autoRenewalComfortLevels),
		checkEnum("riskPreferences.legal.overallImportance", r.RiskPreferences.Legal.OverallImportance, importanceLevels),
		checkEnum("riskPreferences.legal.arbitrationAwareness", r.RiskPreferences.Legal.ArbitrationAwareness, arbitrationAwarenessLevels),

		checkEnum("contextualFactors.dependentStatus", r.ContextualFactors.DependentStatus, dependentStatuses),
		checkMulti("contextualFactors.specialCircumstances", r.ContextualFactors.SpecialCircumstances, specialCircumstanceOptions, false),
		checkEnum("contextualFactors.alertPreferences.interruptionTiming", r.ContextualFactors.AlertPreferences.InterruptionTiming, interruptionTimings),
		checkEnum("contextualFactors.alertPreferences.alertFrequencyLimit", r.ContextualFactors.AlertPreferences.AlertFrequencyLimit, alertFrequencyLimits),
	}

	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if p := r.ContextualFactors.AlertPreferences.PreferredExplanationStyle; p != "" {
		if !inDomain(p, preferredStyles) {
			return invalidValue("contextualFactors.alertPreferences.preferredExplanationStyle", p)
		}
	}
	return nil
}
