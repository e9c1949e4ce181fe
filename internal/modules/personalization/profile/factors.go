package profile

// ComputationVersion tags every ComputedProfile. Any change to the tables
// below must bump it; stored profiles carrying an older version are
// recomputed from their raw response instead of being reused.
const ComputationVersion = "2.1.0"

// importanceBase maps a category's stated importance to its base tolerance.
// More important to the user = lower tolerated risk.
var importanceBase = map[string]float64{
	"extremely_important":  1.5,
	"very_important":       3.5,
	"moderately_important": 5.5,
	"not_very_important":   7.5,
}

var ageFactor = map[string]float64{
	"under_18": 0.7,
	"18_25":    0.9,
	"26_40":    1.0,
	"41_55":    1.0,
	"56_70":    0.9,
	"over_70":  0.75,
}

var occupationFactor = map[string]float64{
	"technology":          1.1,
	"legal_compliance":    1.2,
	"healthcare":          0.95,
	"finance":             1.05,
	"education":           0.95,
	"student":             0.85,
	"retired":             0.8,
	"creative_media":      1.0,
	"business_management": 1.05,
	"government":          0.9,
	"service_industry":    0.9,
	"other":               1.0,
	"prefer_not_to_say":   1.0,
}

var dependentFactor = map[string]float64{
	"none":                 1.0,
	"partner":              0.95,
	"children":             0.8,
	"elderly_parents":      0.85,
	"children_and_parents": 0.75,
	"other_dependents":     0.9,
}

// circumstanceFactor values multiply together when several circumstances
// are selected; "none" is neutral.
var circumstanceFactor = map[string]float64{
	"none":                            1.0,
	"recent_identity_theft":           0.6,
	"prior_legal_dispute":             0.75,
	"small_business_owner":            0.9,
	"frequent_financial_transactions": 0.85,
	"limited_english_proficiency":     0.7,
	"accessibility_needs":             0.8,
	"public_figure":                   0.7,
}

// alertTimingAdjustment scales the tolerance term inside the threshold
// formula: stricter timings produce a larger term, hence a lower threshold
// and earlier alerts.
var alertTimingAdjustment = map[string]float64{
	"immediate":       1.15,
	"before_agreeing": 1.05,
	"daily_digest":    0.95,
	"weekly_summary":  0.85,
	"only_critical":   0.7,
}

// frequencyAdjustment nudges thresholds up for users who allow many alerts
// per day overall; per-category alerts stay selective.
var frequencyAdjustment = map[string]float64{
	"unlimited":    0.9,
	"ten_per_day":  0.95,
	"five_per_day": 1.0,
	"two_per_day":  1.05,
	"one_per_day":  1.1,
}

// vulnerableCircumstances force simple_protective explanations regardless
// of any stated style preference.
var vulnerableCircumstances = map[string]bool{
	"recent_identity_theft":       true,
	"limited_english_proficiency": true,
	"accessibility_needs":         true,
}

var preferredStyleMap = map[string]Style{
	"simple":    StyleSimpleProtective,
	"balanced":  StyleBalancedEducational,
	"technical": StyleTechnicalEfficient,
	"detailed":  StyleComprehensiveCautious,
}

var occupationStyleDefault = map[string]Style{
	"legal_compliance":    StyleTechnicalEfficient,
	"technology":          StyleTechnicalEfficient,
	"finance":             StyleComprehensiveCautious,
	"business_management": StyleComprehensiveCautious,
}

var ageStyleDefault = map[string]Style{
	"under_18": StyleSimpleProtective,
	"18_25":    StyleBalancedEducational,
	"26_40":    StyleBalancedEducational,
	"41_55":    StyleBalancedEducational,
	"56_70":    StyleBalancedEducational,
	"over_70":  StyleSimpleProtective,
}
