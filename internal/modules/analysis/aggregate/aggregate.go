package aggregate

import (
	"errors"
	"sort"

	"github.com/clauselens/core/internal/modules/personalization/profile"
)

// ErrNoPasses means no analysis passes settled; the caller surfaces this as
// "analysis unavailable" rather than retrying here.
var ErrNoPasses = errors.New("aggregate: no analysis passes available")

type categoryAccumulator struct {
	weightedSum   float64
	scoreSum      float64
	confidenceSum float64
	passes        int
}

// Aggregate combines one or more passes into a Result. Per category the
// score is the confidence-weighted mean over the passes that reported it,
// confidence is the mean of their confidences, and passes_contributing
// records how many there were. The profile is optional; when present it
// adds the per-category alert flags without touching any numeric score.
//
// Output depends only on the inputs: category iteration is sorted, so two
// calls with the same ordered pass list produce identical results.
func Aggregate(passes []Pass, prof *profile.ComputedProfile) (*Result, error) {
	if len(passes) == 0 {
		return nil, ErrNoPasses
	}

	accs := make(map[string]*categoryAccumulator)
	var summaries []string
	var keyPoints []string

	for _, p := range passes {
		for name, cs := range p.Categories {
			acc := accs[name]
			if acc == nil {
				acc = &categoryAccumulator{}
				accs[name] = acc
			}
			acc.weightedSum += cs.Score * cs.Confidence
			acc.scoreSum += cs.Score
			acc.confidenceSum += cs.Confidence
			acc.passes++
		}
		if p.Summary != "" {
			summaries = append(summaries, p.Summary)
		}
		keyPoints = append(keyPoints, p.KeyPoints...)
	}

	// Passes that reported no categories at all cannot back a score.
	if len(accs) == 0 {
		return nil, ErrNoPasses
	}

	names := make([]string, 0, len(accs))
	for name := range accs {
		names = append(names, name)
	}
	sort.Strings(names)

	categories := make(map[string]CategoryResult, len(names))
	for _, name := range names {
		acc := accs[name]
		score := acc.scoreSum / float64(acc.passes)
		if acc.confidenceSum > 0 {
			score = acc.weightedSum / acc.confidenceSum
		}
		categories[name] = CategoryResult{
			Score:              score,
			Confidence:         acc.confidenceSum / float64(acc.passes),
			PassesContributing: acc.passes,
		}
	}

	overall := overallScore(names, categories)

	result := &Result{
		Categories:       categories,
		OverallRiskScore: overall,
		RiskLevel:        LevelFor(overall),
		PassCount:        len(passes),
		Summaries:        summaries,
		KeyPoints:        keyPoints,
	}

	if prof != nil {
		alerts := make(map[string]bool, len(names))
		for _, name := range names {
			alerts[name] = categories[name].Score >= prof.AlertThresholds.ThresholdFor(name)
		}
		result.Alerts = alerts
		result.OverallAlert = overall >= prof.AlertThresholds.Overall
	}

	return result, nil
}

// overallScore applies the fixed category weights, renormalized over the
// weighted categories actually present. When none of the weighted
// categories were reported, it falls back to the plain mean of whatever
// was.
func overallScore(names []string, categories map[string]CategoryResult) float64 {
	var weightSum int
	var weighted float64
	for _, name := range names {
		w, ok := categoryWeights[name]
		if !ok {
			continue
		}
		weightSum += w
		weighted += float64(w) * categories[name].Score
	}
	if weightSum > 0 {
		return weighted / float64(weightSum)
	}

	var sum float64
	for _, name := range names {
		sum += categories[name].Score
	}
	if len(names) == 0 {
		return 0
	}
	return sum / float64(len(names))
}
