package profile

import (
	"math"
	"time"
)

// Compute validates a questionnaire response and derives the full profile.
// The result depends only on r and the tables in factors.go; now is stamped
// on the output as ComputedAt and never enters the math.
func Compute(r RawPersonalizationResponse, now time.Time) (*ComputedProfile, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	mult := ageFactor[r.Demographics.AgeRange] *
		occupationFactor[r.Demographics.Occupation] *
		dependentFactor[r.ContextualFactors.DependentStatus] *
		circumstanceMultiplier(r.ContextualFactors.SpecialCircumstances)

	privacy := round2(clampScore(importanceBase[r.RiskPreferences.Privacy.OverallImportance] * mult))
	financial := round2(clampScore(importanceBase[r.RiskPreferences.Financial.OverallImportance] * mult))
	legal := round2(clampScore(importanceBase[r.RiskPreferences.Legal.OverallImportance] * mult))
	overall := round1((privacy + financial + legal) / 3)

	tolerance := RiskTolerance{
		Privacy:   privacy,
		Financial: financial,
		Legal:     legal,
		Overall:   overall,
	}

	prefs := r.ContextualFactors.AlertPreferences
	adj := alertTimingAdjustment[prefs.InterruptionTiming] * frequencyAdjustment[prefs.AlertFrequencyLimit]
	threshold := func(tol float64) float64 {
		return round2(clampScore(10 - tol*adj))
	}

	return &ComputedProfile{
		RiskTolerance: tolerance,
		AlertThresholds: AlertThresholds{
			Privacy:     threshold(tolerance.Privacy),
			Liability:   threshold(tolerance.Legal),
			Termination: threshold(tolerance.Legal),
			Payment:     threshold(tolerance.Financial),
			Overall:     threshold(tolerance.Overall),
		},
		ExplanationStyle:   resolveStyle(r),
		ProfileTags:        BuildTags(r),
		ComputedAt:         now,
		ComputationVersion: ComputationVersion,
	}, nil
}

// circumstanceMultiplier multiplies the factors of each distinct selected
// circumstance. Repeated selections count once.
func circumstanceMultiplier(selected []string) float64 {
	mult := 1.0
	seen := make(map[string]bool, len(selected))
	for _, c := range selected {
		if seen[c] {
			continue
		}
		seen[c] = true
		mult *= circumstanceFactor[c]
	}
	return mult
}

// resolveStyle applies the explanation-style priority rules: vulnerability
// first, then explicit preference, then occupation default, then age
// default.
func resolveStyle(r RawPersonalizationResponse) Style {
	for _, c := range r.ContextualFactors.SpecialCircumstances {
		if vulnerableCircumstances[c] {
			return StyleSimpleProtective
		}
	}
	if p := r.ContextualFactors.AlertPreferences.PreferredExplanationStyle; p != "" {
		return preferredStyleMap[p]
	}
	if s, ok := occupationStyleDefault[r.Demographics.Occupation]; ok {
		return s
	}
	return ageStyleDefault[r.Demographics.AgeRange]
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
