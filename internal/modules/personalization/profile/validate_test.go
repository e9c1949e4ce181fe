package profile

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateAcceptsFullResponse(t *testing.T) {
	if err := Validate(validResponse()); err != nil {
		t.Fatalf("valid response rejected: %v", err)
	}
}

func TestValidateMissingFieldNamesPath(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*RawPersonalizationResponse)
	}{
		{"demographics.ageRange", func(r *RawPersonalizationResponse) { r.Demographics.AgeRange = "" }},
		{"demographics.occupation", func(r *RawPersonalizationResponse) { r.Demographics.Occupation = "" }},
		{"digitalBehavior.primaryActivities", func(r *RawPersonalizationResponse) { r.DigitalBehavior.PrimaryActivities = nil }},
		{"riskPreferences.privacy.overallImportance", func(r *RawPersonalizationResponse) { r.RiskPreferences.Privacy.OverallImportance = "" }},
		{"riskPreferences.legal.arbitrationAwareness", func(r *RawPersonalizationResponse) { r.RiskPreferences.Legal.ArbitrationAwareness = "" }},
		{"contextualFactors.dependentStatus", func(r *RawPersonalizationResponse) { r.ContextualFactors.DependentStatus = "" }},
		{"contextualFactors.alertPreferences.interruptionTiming", func(r *RawPersonalizationResponse) { r.ContextualFactors.AlertPreferences.InterruptionTiming = "" }},
	}

	for _, tc := range cases {
		r := validResponse()
		tc.mutate(&r)

		err := Validate(r)
		if err == nil {
			t.Errorf("%s: missing field accepted", tc.field)
			continue
		}

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: error type %T, want *ValidationError", tc.field, err)
			continue
		}
		if verr.Field != tc.field {
			t.Errorf("reported field %q, want %q", verr.Field, tc.field)
		}
		if verr.Value != "" {
			t.Errorf("%s: missing field reported value %q", tc.field, verr.Value)
		}
		if !strings.Contains(err.Error(), tc.field) {
			t.Errorf("message %q does not name the field path", err.Error())
		}
	}
}

func TestValidateRejectsOutOfDomainValues(t *testing.T) {
	cases := []struct {
		field  string
		value  string
		mutate func(*RawPersonalizationResponse)
	}{
		{"demographics.ageRange", "13_17", func(r *RawPersonalizationResponse) { r.Demographics.AgeRange = "13_17" }},
		{"digitalBehavior.primaryActivities", "crypto_trading", func(r *RawPersonalizationResponse) {
			r.DigitalBehavior.PrimaryActivities = []string{"online_shopping", "crypto_trading"}
		}},
		{"riskPreferences.financial.overallImportance", "critical", func(r *RawPersonalizationResponse) {
			r.RiskPreferences.Financial.OverallImportance = "critical"
		}},
		{"contextualFactors.specialCircumstances", "celebrity", func(r *RawPersonalizationResponse) {
			r.ContextualFactors.SpecialCircumstances = []string{"celebrity"}
		}},
		{"contextualFactors.alertPreferences.preferredExplanationStyle", "verbose", func(r *RawPersonalizationResponse) {
			r.ContextualFactors.AlertPreferences.PreferredExplanationStyle = "verbose"
		}},
	}

	for _, tc := range cases {
		r := validResponse()
		tc.mutate(&r)

		err := Validate(r)
		if err == nil {
			t.Errorf("%s=%s: accepted", tc.field, tc.value)
			continue
		}

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: error type %T, want *ValidationError", tc.field, err)
			continue
		}
		if verr.Field != tc.field || verr.Value != tc.value {
			t.Errorf("reported %s=%q, want %s=%q", verr.Field, verr.Value, tc.field, tc.value)
		}
		if !strings.Contains(err.Error(), tc.value) {
			t.Errorf("message %q does not name the offending value", err.Error())
		}
	}
}

func TestValidateComputeRefusesInvalidInput(t *testing.T) {
	r := validResponse()
	r.Demographics.AgeRange = "ancient"

	if _, err := Compute(r, time.Now()); err == nil {
		t.Fatal("Compute accepted an out-of-domain response")
	}
}

func TestValidateEmptyCircumstancesAllowed(t *testing.T) {
	r := validResponse()
	r.ContextualFactors.SpecialCircumstances = nil
	if err := Validate(r); err != nil {
		t.Fatalf("empty specialCircumstances rejected: %v", err)
	}
}

func TestValidateOptionalStyleMayBeEmpty(t *testing.T) {
	r := validResponse()
	r.ContextualFactors.AlertPreferences.PreferredExplanationStyle = ""
	if err := Validate(r); err != nil {
		t.Fatalf("empty optional style rejected: %v", err)
	}
}
