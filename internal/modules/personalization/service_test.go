package personalization

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/clauselens/core/internal/modules/personalization/profile"
)

func storedResponse() profile.RawPersonalizationResponse {
	return profile.RawPersonalizationResponse{
		Demographics: profile.Demographics{
			AgeRange:     "26_40",
			Jurisdiction: "us",
			Occupation:   "technology",
		},
		DigitalBehavior: profile.DigitalBehavior{
			TechSophistication:    "advanced",
			PrimaryActivities:     []string{"online_shopping", "banking_finance"},
			AgreementReadingHabit: "skim",
		},
		RiskPreferences: profile.RiskPreferences{
			Privacy:   profile.PrivacyPreference{OverallImportance: "very_important", DataSharingComfort: "somewhat_uncomfortable"},
			Financial: profile.FinancialPreference{OverallImportance: "moderately_important", AutoRenewalComfort: "want_warnings"},
			Legal:     profile.LegalPreference{OverallImportance: "moderately_important", ArbitrationAwareness: "vaguely_aware"},
		},
		ContextualFactors: profile.ContextualFactors{
			DependentStatus:      "none",
			SpecialCircumstances: []string{"none"},
			AlertPreferences: profile.AlertPreferences{
				InterruptionTiming:  "before_agreeing",
				AlertFrequencyLimit: "five_per_day",
			},
		},
	}
}

func TestApplySectionReplacesOnlyThatSection(t *testing.T) {
	stored := storedResponse()
	body := json.RawMessage(`{"ageRange":"56_70","jurisdiction":"eu","occupation":"retired"}`)

	got, err := applySection(stored, SectionDemographics, body)
	if err != nil {
		t.Fatalf("applySection: %v", err)
	}

	if got.Demographics.AgeRange != "56_70" || got.Demographics.Jurisdiction != "eu" || got.Demographics.Occupation != "retired" {
		t.Errorf("demographics not replaced: %+v", got.Demographics)
	}
	if got.DigitalBehavior.TechSophistication != "advanced" {
		t.Errorf("digitalBehavior changed: %+v", got.DigitalBehavior)
	}
	if got.RiskPreferences.Privacy.OverallImportance != "very_important" {
		t.Errorf("riskPreferences changed: %+v", got.RiskPreferences)
	}
	if got.ContextualFactors.AlertPreferences.InterruptionTiming != "before_agreeing" {
		t.Errorf("contextualFactors changed: %+v", got.ContextualFactors)
	}

	// The input must stay untouched.
	if stored.Demographics.AgeRange != "26_40" {
		t.Errorf("input mutated: %+v", stored.Demographics)
	}
}

func TestApplySectionReplacesArraysWholesale(t *testing.T) {
	body := json.RawMessage(`{
		"techSophistication": "basic",
		"primaryActivities": ["social_media"],
		"agreementReadingHabit": "never"
	}`)

	got, err := applySection(storedResponse(), SectionDigitalBehavior, body)
	if err != nil {
		t.Fatalf("applySection: %v", err)
	}
	if len(got.DigitalBehavior.PrimaryActivities) != 1 || got.DigitalBehavior.PrimaryActivities[0] != "social_media" {
		t.Errorf("activities should be replaced, not merged: %v", got.DigitalBehavior.PrimaryActivities)
	}
}

func TestApplySectionOmittedFieldFailsRecompute(t *testing.T) {
	// PUT semantics: a body without jurisdiction zeroes it, and the full
	// recompute that follows must reject the response.
	body := json.RawMessage(`{"ageRange":"41_55","occupation":"finance"}`)

	got, err := applySection(storedResponse(), SectionDemographics, body)
	if err != nil {
		t.Fatalf("applySection: %v", err)
	}
	if got.Demographics.Jurisdiction != "" {
		t.Fatalf("omitted field kept stale value %q", got.Demographics.Jurisdiction)
	}

	_, err = profile.Compute(got, time.Now())
	var verr *profile.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "demographics.jurisdiction" {
		t.Errorf("wrong field reported: %s", verr.Field)
	}
}

func TestApplySectionUnknownSection(t *testing.T) {
	_, err := applySection(storedResponse(), "computedProfile", json.RawMessage(`{}`))
	if !errors.Is(err, errUnknownSection) {
		t.Fatalf("expected errUnknownSection, got %v", err)
	}
}

func TestApplySectionMalformedBody(t *testing.T) {
	for _, body := range []string{`42`, `"text"`, `{"ageRange": 7}`, `[1,2]`} {
		_, err := applySection(storedResponse(), SectionDemographics, json.RawMessage(body))
		if !errors.Is(err, errBadSectionBody) {
			t.Errorf("body %s: expected errBadSectionBody, got %v", body, err)
		}
	}
}

func TestApplySectionRecomputeRoundTrip(t *testing.T) {
	body := json.RawMessage(`{
		"privacy":   {"overallImportance": "extremely_important", "dataSharingComfort": "very_uncomfortable"},
		"financial": {"overallImportance": "very_important", "autoRenewalComfort": "always_cancel"},
		"legal":     {"overallImportance": "very_important", "arbitrationAwareness": "very_familiar"}
	}`)

	got, err := applySection(storedResponse(), SectionRiskPreferences, body)
	if err != nil {
		t.Fatalf("applySection: %v", err)
	}

	before, err := profile.Compute(storedResponse(), time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	after, err := profile.Compute(got, time.Now())
	if err != nil {
		t.Fatalf("Compute after update: %v", err)
	}

	// Stricter privacy answers must lower the privacy tolerance.
	if after.RiskTolerance.Privacy >= before.RiskTolerance.Privacy {
		t.Errorf("privacy tolerance did not drop: before %.2f after %.2f",
			before.RiskTolerance.Privacy, after.RiskTolerance.Privacy)
	}
	if after.ComputationVersion != profile.ComputationVersion {
		t.Errorf("recompute stamped wrong version %q", after.ComputationVersion)
	}
}
