package aggregate

// categoryWeights drive the overall risk score. The units encode the
// 0.3/0.3/0.2/0.2 weighting over the four tracked categories and are
// renormalized over whichever of them are present in a result; categories
// outside this table contribute to per-category results but never to the
// overall score. Integer units keep the weighted mean a single division,
// so an exact-boundary input like (8+6)/2 weighted 3:3 lands on 7.0
// rather than a hair under it.
var categoryWeights = map[string]int{
	"privacy":     3,
	"liability":   3,
	"termination": 2,
	"payment":     2,
}

// Risk level band lower bounds, inclusive.
const (
	mediumRiskFloor = 4.0
	highRiskFloor   = 7.0
)

// LevelFor discretizes an overall risk score.
func LevelFor(score float64) RiskLevel {
	switch {
	case score >= highRiskFloor:
		return RiskHigh
	case score >= mediumRiskFloor:
		return RiskMedium
	default:
		return RiskLow
	}
}
