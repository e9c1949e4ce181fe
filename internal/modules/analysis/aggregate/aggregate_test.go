package aggregate

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/clauselens/core/internal/modules/personalization/profile"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func fullPass(scores map[string]float64, confidence float64) Pass {
	categories := make(map[string]CategoryScore, len(scores))
	for name, score := range scores {
		categories[name] = CategoryScore{Score: score, Confidence: confidence}
	}
	return Pass{Categories: categories}
}

func TestAggregateEmptyInput(t *testing.T) {
	if _, err := Aggregate(nil, nil); !errors.Is(err, ErrNoPasses) {
		t.Fatalf("Aggregate(nil) error = %v, want ErrNoPasses", err)
	}
	if _, err := Aggregate([]Pass{}, nil); !errors.Is(err, ErrNoPasses) {
		t.Fatalf("Aggregate([]) error = %v, want ErrNoPasses", err)
	}
	// A pass that scored nothing backs nothing.
	if _, err := Aggregate([]Pass{{Categories: map[string]CategoryScore{}}}, nil); !errors.Is(err, ErrNoPasses) {
		t.Fatalf("empty-category pass error = %v, want ErrNoPasses", err)
	}
}

func TestAggregateSinglePassIdentity(t *testing.T) {
	pass := fullPass(map[string]float64{
		"privacy":     8.2,
		"liability":   3.1,
		"termination": 5.5,
		"payment":     6.0,
	}, 1.0)

	result, err := Aggregate([]Pass{pass}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	for name, want := range map[string]float64{"privacy": 8.2, "liability": 3.1, "termination": 5.5, "payment": 6.0} {
		got, ok := result.Categories[name]
		if !ok {
			t.Fatalf("category %s missing", name)
		}
		if !almostEqual(got.Score, want) {
			t.Errorf("%s score = %v, want %v", name, got.Score, want)
		}
		if !almostEqual(got.Confidence, 1.0) {
			t.Errorf("%s confidence = %v, want 1.0", name, got.Confidence)
		}
		if got.PassesContributing != 1 {
			t.Errorf("%s passes_contributing = %d, want 1", name, got.PassesContributing)
		}
	}
	if result.PassCount != 1 {
		t.Errorf("pass_count = %d, want 1", result.PassCount)
	}
}

func TestAggregateConfidenceWeightedMean(t *testing.T) {
	passes := []Pass{
		{Categories: map[string]CategoryScore{"privacy": {Score: 8, Confidence: 0.9}}},
		{Categories: map[string]CategoryScore{"privacy": {Score: 6, Confidence: 0.5}}},
		{Categories: map[string]CategoryScore{"privacy": {Score: 4, Confidence: 0.2}}},
	}

	result, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	privacy := result.Categories["privacy"]
	want := (8*0.9 + 6*0.5 + 4*0.2) / (0.9 + 0.5 + 0.2) // 6.875
	if !almostEqual(privacy.Score, want) {
		t.Errorf("privacy score = %v, want weighted mean %v", privacy.Score, want)
	}
	if almostEqual(privacy.Score, 6.0) {
		t.Error("privacy score equals the unweighted mean; weighting not applied")
	}
	wantConfidence := (0.9 + 0.5 + 0.2) / 3
	if !almostEqual(privacy.Confidence, wantConfidence) {
		t.Errorf("privacy confidence = %v, want mean %v", privacy.Confidence, wantConfidence)
	}
	if privacy.PassesContributing != 3 {
		t.Errorf("passes_contributing = %d, want 3", privacy.PassesContributing)
	}
}

func TestAggregateOrderInvariant(t *testing.T) {
	passes := []Pass{
		fullPass(map[string]float64{"privacy": 8, "liability": 2}, 0.9),
		fullPass(map[string]float64{"privacy": 3, "liability": 7, "payment": 5}, 0.4),
		fullPass(map[string]float64{"privacy": 6, "payment": 1}, 0.7),
	}
	reversed := []Pass{passes[2], passes[1], passes[0]}

	a, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	b, err := Aggregate(reversed, nil)
	if err != nil {
		t.Fatalf("Aggregate reversed: %v", err)
	}

	if len(a.Categories) != len(b.Categories) {
		t.Fatalf("category count differs: %d vs %d", len(a.Categories), len(b.Categories))
	}
	for name, ca := range a.Categories {
		cb := b.Categories[name]
		if !almostEqual(ca.Score, cb.Score) || !almostEqual(ca.Confidence, cb.Confidence) || ca.PassesContributing != cb.PassesContributing {
			t.Errorf("category %s differs after reorder: %+v vs %+v", name, ca, cb)
		}
	}
	if !almostEqual(a.OverallRiskScore, b.OverallRiskScore) {
		t.Errorf("overall differs after reorder: %v vs %v", a.OverallRiskScore, b.OverallRiskScore)
	}
	if a.RiskLevel != b.RiskLevel {
		t.Errorf("risk level differs after reorder: %s vs %s", a.RiskLevel, b.RiskLevel)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	passes := []Pass{
		fullPass(map[string]float64{"privacy": 7.3, "liability": 4.4, "termination": 2.2}, 0.8),
		fullPass(map[string]float64{"privacy": 5.1, "payment": 9.9}, 0.6),
	}

	first, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	second, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("same input produced different bytes:\n%s\n%s", a, b)
	}
}

func TestAggregateRiskLevelBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{3.999, RiskLow},
		{4.0, RiskMedium},
		{6.999, RiskMedium},
		{7.0, RiskHigh},
		{0, RiskLow},
		{10, RiskHigh},
	}

	for _, tc := range cases {
		result, err := Aggregate([]Pass{fullPass(map[string]float64{"privacy": tc.score}, 1.0)}, nil)
		if err != nil {
			t.Fatalf("Aggregate(%v): %v", tc.score, err)
		}
		if !almostEqual(result.OverallRiskScore, tc.score) {
			t.Errorf("overall = %v, want %v", result.OverallRiskScore, tc.score)
		}
		if result.RiskLevel != tc.want {
			t.Errorf("score %v → level %s, want %s", tc.score, result.RiskLevel, tc.want)
		}
	}
}

func TestAggregateOmitsUnreportedCategories(t *testing.T) {
	passes := []Pass{
		fullPass(map[string]float64{"privacy": 5}, 0.9),
		fullPass(map[string]float64{"privacy": 6, "payment": 2}, 0.8),
	}

	result, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if _, ok := result.Categories["termination"]; ok {
		t.Error("termination reported by zero passes must be absent, not defaulted")
	}
	if _, ok := result.Categories["liability"]; ok {
		t.Error("liability reported by zero passes must be absent, not defaulted")
	}
	if got := result.Categories["payment"].PassesContributing; got != 1 {
		t.Errorf("payment passes_contributing = %d, want 1", got)
	}
	if got := result.Categories["privacy"].PassesContributing; got != 2 {
		t.Errorf("privacy passes_contributing = %d, want 2", got)
	}
}

func TestAggregateRenormalizesWeights(t *testing.T) {
	// Only privacy (0.3) and liability (0.3) present: equal effective
	// weight, so overall is their plain mean.
	passes := []Pass{fullPass(map[string]float64{"privacy": 8, "liability": 6}, 1.0)}

	result, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !almostEqual(result.OverallRiskScore, 7.0) {
		t.Errorf("overall = %v, want renormalized 7.0", result.OverallRiskScore)
	}
	if result.RiskLevel != RiskHigh {
		t.Errorf("risk level = %s, want high at the 7.0 boundary", result.RiskLevel)
	}

	// privacy (0.3) and termination (0.2): weights renormalize to 0.6/0.4.
	passes = []Pass{fullPass(map[string]float64{"privacy": 10, "termination": 5}, 1.0)}
	result, err = Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := (0.3*10 + 0.2*5) / 0.5
	if !almostEqual(result.OverallRiskScore, want) {
		t.Errorf("overall = %v, want %v", result.OverallRiskScore, want)
	}
}

func TestAggregateExactHighBoundaryUnderRenormalization(t *testing.T) {
	// Weighted means that land mathematically on 7.0 must discretize as
	// high, whatever subset of weighted categories is present.
	cases := []map[string]float64{
		{"privacy": 8, "liability": 6},
		{"termination": 7, "payment": 7},
		{"privacy": 9, "termination": 4},
	}
	for _, categories := range cases {
		result, err := Aggregate([]Pass{fullPass(categories, 1.0)}, nil)
		if err != nil {
			t.Fatalf("Aggregate(%v): %v", categories, err)
		}
		if result.OverallRiskScore != 7.0 {
			t.Errorf("overall for %v = %v, want exactly 7.0", categories, result.OverallRiskScore)
		}
		if result.RiskLevel != RiskHigh {
			t.Errorf("risk level for %v = %s, want high", categories, result.RiskLevel)
		}
	}
}

func TestAggregateUnknownCategoriesExcludedFromOverall(t *testing.T) {
	passes := []Pass{fullPass(map[string]float64{"privacy": 2, "content_ownership": 9}, 1.0)}

	result, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if _, ok := result.Categories["content_ownership"]; !ok {
		t.Fatal("extra category missing from per-category results")
	}
	if !almostEqual(result.OverallRiskScore, 2.0) {
		t.Errorf("overall = %v, want 2.0 (weighted categories only)", result.OverallRiskScore)
	}
}

func TestAggregateZeroConfidenceFallsBackToPlainMean(t *testing.T) {
	passes := []Pass{
		{Categories: map[string]CategoryScore{"privacy": {Score: 2, Confidence: 0}}},
		{Categories: map[string]CategoryScore{"privacy": {Score: 8, Confidence: 0}}},
	}

	result, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !almostEqual(result.Categories["privacy"].Score, 5.0) {
		t.Errorf("zero-confidence score = %v, want plain mean 5.0", result.Categories["privacy"].Score)
	}
}

func TestAggregateAlertFlags(t *testing.T) {
	prof := &profile.ComputedProfile{
		AlertThresholds: profile.AlertThresholds{
			Privacy:     6.0,
			Liability:   5.0,
			Termination: 8.0,
			Payment:     4.0,
			Overall:     5.5,
		},
	}

	passes := []Pass{fullPass(map[string]float64{
		"privacy":     6.0, // equal to threshold → alert
		"liability":   4.9, // just below → no alert
		"termination": 9.0, // above → alert
		"payment":     1.0, // below → no alert
	}, 1.0)}

	result, err := Aggregate(passes, prof)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	wantFlags := map[string]bool{
		"privacy":     true,
		"liability":   false,
		"termination": true,
		"payment":     false,
	}
	for name, want := range wantFlags {
		if got := result.Alerts[name]; got != want {
			t.Errorf("alert[%s] = %v, want %v", name, got, want)
		}
	}

	// The boolean layer must not move any number.
	bare, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate without profile: %v", err)
	}
	for name, cr := range bare.Categories {
		if !almostEqual(cr.Score, result.Categories[name].Score) {
			t.Errorf("profile changed %s score: %v vs %v", name, result.Categories[name].Score, cr.Score)
		}
	}
	if !almostEqual(bare.OverallRiskScore, result.OverallRiskScore) {
		t.Errorf("profile changed overall: %v vs %v", result.OverallRiskScore, bare.OverallRiskScore)
	}
	if bare.Alerts != nil {
		t.Error("alerts present without a profile")
	}
}

func TestAggregatePassthroughTextInPassOrder(t *testing.T) {
	passes := []Pass{
		{Categories: map[string]CategoryScore{"privacy": {Score: 5, Confidence: 0.5}}, Summary: "first", KeyPoints: []string{"a", "b"}},
		{Categories: map[string]CategoryScore{"privacy": {Score: 5, Confidence: 0.5}}, Summary: "second", KeyPoints: []string{"c"}},
	}

	result, err := Aggregate(passes, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(result.Summaries) != 2 || result.Summaries[0] != "first" || result.Summaries[1] != "second" {
		t.Errorf("summaries = %v", result.Summaries)
	}
	if len(result.KeyPoints) != 3 || result.KeyPoints[0] != "a" || result.KeyPoints[2] != "c" {
		t.Errorf("key points = %v", result.KeyPoints)
	}
}
