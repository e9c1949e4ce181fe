package profile

// BuildTags produces the profile's prompt-hint tags. Section order is fixed
// (demographics, preferences, usage, context) so identical responses always
// yield the identical tag sequence; duplicates are suppressed; multi-select
// answers contribute one tag per value in the order the user selected them.
func BuildTags(r RawPersonalizationResponse) []string {
	b := tagBuilder{seen: make(map[string]bool)}

	// demographics
	b.add("age", r.Demographics.AgeRange)
	b.add("occupation", r.Demographics.Occupation)
	b.add("jurisdiction", r.Demographics.Jurisdiction)

	// preferences
	b.add("privacy", r.RiskPreferences.Privacy.OverallImportance)
	b.add("data_sharing", r.RiskPreferences.Privacy.DataSharingComfort)
	b.add("financial", r.RiskPreferences.Financial.OverallImportance)
	b.add("auto_renewal", r.RiskPreferences.Financial.AutoRenewalComfort)
	b.add("legal", r.RiskPreferences.Legal.OverallImportance)
	b.add("arbitration", r.RiskPreferences.Legal.ArbitrationAwareness)

	// usage
	b.add("tech", r.DigitalBehavior.TechSophistication)
	for _, activity := range r.DigitalBehavior.PrimaryActivities {
		b.add("activity", activity)
	}
	b.add("reading", r.DigitalBehavior.AgreementReadingHabit)

	// context
	b.add("dependents", r.ContextualFactors.DependentStatus)
	for _, c := range r.ContextualFactors.SpecialCircumstances {
		if c == "none" {
			continue
		}
		b.add("circumstance", c)
	}
	b.add("alerts", r.ContextualFactors.AlertPreferences.InterruptionTiming)

	return b.tags
}

type tagBuilder struct {
	tags []string
	seen map[string]bool
}

func (b *tagBuilder) add(category, value string) {
	if value == "" {
		return
	}
	tag := category + "_" + value
	if b.seen[tag] {
		return
	}
	b.seen[tag] = true
	b.tags = append(b.tags, tag)
}
