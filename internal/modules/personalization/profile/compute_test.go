package profile

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func validResponse() RawPersonalizationResponse {
	return RawPersonalizationResponse{
		Demographics: Demographics{
			AgeRange:     "26_40",
			Jurisdiction: "us",
			Occupation:   "technology",
		},
		DigitalBehavior: DigitalBehavior{
			TechSophistication:    "advanced",
			PrimaryActivities:     []string{"online_shopping", "banking_finance"},
			AgreementReadingHabit: "skim",
		},
		RiskPreferences: RiskPreferences{
			Privacy:   PrivacyPreference{OverallImportance: "very_important", DataSharingComfort: "somewhat_uncomfortable"},
			Financial: FinancialPreference{OverallImportance: "moderately_important", AutoRenewalComfort: "want_warnings"},
			Legal:     LegalPreference{OverallImportance: "moderately_important", ArbitrationAwareness: "vaguely_aware"},
		},
		ContextualFactors: ContextualFactors{
			DependentStatus:      "none",
			SpecialCircumstances: []string{"none"},
			AlertPreferences: AlertPreferences{
				InterruptionTiming:  "before_agreeing",
				AlertFrequencyLimit: "five_per_day",
			},
		},
	}
}

func TestComputeDeterministic(t *testing.T) {
	r := validResponse()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first, err := Compute(r, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(r, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("identical input produced different profiles:\n%s\n%s", a, b)
	}

	// A different timestamp must change ComputedAt and nothing else.
	third, err := Compute(r, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	third.ComputedAt = first.ComputedAt
	c, _ := json.Marshal(third)
	if string(a) != string(c) {
		t.Fatalf("timestamp leaked into computation:\n%s\n%s", a, c)
	}
}

func TestComputeOverallIsRoundedMean(t *testing.T) {
	combos := [][3]string{
		{"extremely_important", "very_important", "not_very_important"},
		{"moderately_important", "moderately_important", "moderately_important"},
		{"not_very_important", "extremely_important", "very_important"},
		{"very_important", "not_very_important", "moderately_important"},
	}

	for _, combo := range combos {
		r := validResponse()
		r.RiskPreferences.Privacy.OverallImportance = combo[0]
		r.RiskPreferences.Financial.OverallImportance = combo[1]
		r.RiskPreferences.Legal.OverallImportance = combo[2]

		p, err := Compute(r, time.Now())
		if err != nil {
			t.Fatalf("Compute(%v): %v", combo, err)
		}

		tol := p.RiskTolerance
		want := math.Round((tol.Privacy+tol.Financial+tol.Legal)/3*10) / 10
		if tol.Overall != want {
			t.Errorf("combo %v: overall = %v, want rounded mean %v", combo, tol.Overall, want)
		}
	}
}

func TestComputeScoresStayClamped(t *testing.T) {
	// Walk extreme corners of the factor space.
	extremes := []RawPersonalizationResponse{
		func() RawPersonalizationResponse {
			r := validResponse()
			r.Demographics.AgeRange = "under_18"
			r.Demographics.Occupation = "retired"
			r.ContextualFactors.DependentStatus = "children_and_parents"
			r.ContextualFactors.SpecialCircumstances = []string{
				"recent_identity_theft", "prior_legal_dispute", "small_business_owner",
				"frequent_financial_transactions", "limited_english_proficiency",
				"accessibility_needs", "public_figure",
			}
			r.RiskPreferences.Privacy.OverallImportance = "extremely_important"
			r.RiskPreferences.Financial.OverallImportance = "extremely_important"
			r.RiskPreferences.Legal.OverallImportance = "extremely_important"
			r.ContextualFactors.AlertPreferences.InterruptionTiming = "only_critical"
			r.ContextualFactors.AlertPreferences.AlertFrequencyLimit = "unlimited"
			return r
		}(),
		func() RawPersonalizationResponse {
			r := validResponse()
			r.Demographics.Occupation = "legal_compliance"
			r.RiskPreferences.Privacy.OverallImportance = "not_very_important"
			r.RiskPreferences.Financial.OverallImportance = "not_very_important"
			r.RiskPreferences.Legal.OverallImportance = "not_very_important"
			r.ContextualFactors.AlertPreferences.InterruptionTiming = "immediate"
			r.ContextualFactors.AlertPreferences.AlertFrequencyLimit = "one_per_day"
			return r
		}(),
	}

	for i, r := range extremes {
		p, err := Compute(r, time.Now())
		if err != nil {
			t.Fatalf("extreme %d: %v", i, err)
		}

		scores := map[string]float64{
			"riskTolerance.privacy":       p.RiskTolerance.Privacy,
			"riskTolerance.financial":     p.RiskTolerance.Financial,
			"riskTolerance.legal":         p.RiskTolerance.Legal,
			"riskTolerance.overall":       p.RiskTolerance.Overall,
			"alertThresholds.privacy":     p.AlertThresholds.Privacy,
			"alertThresholds.liability":   p.AlertThresholds.Liability,
			"alertThresholds.termination": p.AlertThresholds.Termination,
			"alertThresholds.payment":     p.AlertThresholds.Payment,
			"alertThresholds.overall":     p.AlertThresholds.Overall,
		}
		for name, v := range scores {
			if v < 0 || v > 10 {
				t.Errorf("extreme %d: %s = %v out of [0,10]", i, name, v)
			}
		}
	}
}

func TestComputeThresholdClampsToZero(t *testing.T) {
	// Max tolerance with the strictest alert settings drives the raw
	// threshold negative; it must clamp at 0, not go below.
	r := validResponse()
	r.Demographics.Occupation = "legal_compliance"
	r.RiskPreferences.Privacy.OverallImportance = "not_very_important"
	r.RiskPreferences.Financial.OverallImportance = "not_very_important"
	r.RiskPreferences.Legal.OverallImportance = "not_very_important"
	r.ContextualFactors.AlertPreferences.InterruptionTiming = "immediate"
	r.ContextualFactors.AlertPreferences.AlertFrequencyLimit = "one_per_day"

	p, err := Compute(r, time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// tolerance 7.5 × 1.2 = 9.0; 10 − 9.0×1.15×1.1 < 0
	if p.AlertThresholds.Privacy != 0 {
		t.Errorf("privacy threshold = %v, want clamp to 0", p.AlertThresholds.Privacy)
	}
}

func TestComputePrivacyImportanceLowersTolerance(t *testing.T) {
	protective := validResponse()
	protective.RiskPreferences.Privacy.OverallImportance = "extremely_important"

	permissive := validResponse()
	permissive.RiskPreferences.Privacy.OverallImportance = "not_very_important"

	p1, err := Compute(protective, time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	p2, err := Compute(permissive, time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if p1.RiskTolerance.Privacy >= p2.RiskTolerance.Privacy {
		t.Fatalf("extremely_important tolerance %v not below not_very_important %v",
			p1.RiskTolerance.Privacy, p2.RiskTolerance.Privacy)
	}
	if diff := p2.RiskTolerance.Privacy - p1.RiskTolerance.Privacy; diff < 3 {
		t.Errorf("tolerance gap %v too small to be material", diff)
	}
	// Thresholds are the complement of tolerance: the lower-tolerance
	// profile must carry the higher threshold.
	if p1.AlertThresholds.Privacy <= p2.AlertThresholds.Privacy {
		t.Errorf("lower tolerance threshold %v should sit above higher tolerance %v",
			p1.AlertThresholds.Privacy, p2.AlertThresholds.Privacy)
	}
}

func TestComputeStylePriority(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawPersonalizationResponse)
		want   Style
	}{
		{
			name: "vulnerability overrides explicit preference",
			mutate: func(r *RawPersonalizationResponse) {
				r.ContextualFactors.SpecialCircumstances = []string{"limited_english_proficiency"}
				r.ContextualFactors.AlertPreferences.PreferredExplanationStyle = "technical"
			},
			want: StyleSimpleProtective,
		},
		{
			name: "explicit preference overrides occupation",
			mutate: func(r *RawPersonalizationResponse) {
				r.Demographics.Occupation = "technology"
				r.ContextualFactors.AlertPreferences.PreferredExplanationStyle = "detailed"
			},
			want: StyleComprehensiveCautious,
		},
		{
			name: "occupation default",
			mutate: func(r *RawPersonalizationResponse) {
				r.Demographics.Occupation = "legal_compliance"
			},
			want: StyleTechnicalEfficient,
		},
		{
			name: "age default middle range",
			mutate: func(r *RawPersonalizationResponse) {
				r.Demographics.Occupation = "healthcare"
				r.Demographics.AgeRange = "41_55"
			},
			want: StyleBalancedEducational,
		},
		{
			name: "age default oldest",
			mutate: func(r *RawPersonalizationResponse) {
				r.Demographics.Occupation = "retired"
				r.Demographics.AgeRange = "over_70"
			},
			want: StyleSimpleProtective,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validResponse()
			tc.mutate(&r)
			p, err := Compute(r, time.Now())
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if p.ExplanationStyle != tc.want {
				t.Errorf("style = %s, want %s", p.ExplanationStyle, tc.want)
			}
		})
	}
}

func TestComputeStricterTimingLowersThresholds(t *testing.T) {
	immediate := validResponse()
	immediate.ContextualFactors.AlertPreferences.InterruptionTiming = "immediate"

	critical := validResponse()
	critical.ContextualFactors.AlertPreferences.InterruptionTiming = "only_critical"

	p1, err := Compute(immediate, time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	p2, err := Compute(critical, time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if p1.AlertThresholds.Overall >= p2.AlertThresholds.Overall {
		t.Errorf("immediate threshold %v should be below only_critical %v",
			p1.AlertThresholds.Overall, p2.AlertThresholds.Overall)
	}
}

func TestComputeStampsVersion(t *testing.T) {
	p, err := Compute(validResponse(), time.Now())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.ComputationVersion != ComputationVersion {
		t.Errorf("version = %q, want %q", p.ComputationVersion, ComputationVersion)
	}
	if p.ComputedAt.IsZero() {
		t.Error("ComputedAt not stamped")
	}
}

func TestThresholdForMapsCategories(t *testing.T) {
	th := AlertThresholds{Privacy: 1, Liability: 2, Termination: 3, Payment: 4, Overall: 5}
	cases := map[string]float64{
		"privacy":     1,
		"liability":   2,
		"termination": 3,
		"payment":     4,
		"unknown":     5,
	}
	for category, want := range cases {
		if got := th.ThresholdFor(category); got != want {
			t.Errorf("ThresholdFor(%q) = %v, want %v", category, got, want)
		}
	}
}
