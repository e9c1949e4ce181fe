package personalization

import "errors"

// Section names accepted by the partial update endpoint. A section update
// replaces that section wholesale and always triggers a full recompute;
// computed fields are never patched in isolation.
const (
	SectionDemographics      = "demographics"
	SectionDigitalBehavior   = "digitalBehavior"
	SectionRiskPreferences   = "riskPreferences"
	SectionContextualFactors = "contextualFactors"
)

type recomputeReport struct {
	Checked    int `json:"checked"`
	Recomputed int `json:"recomputed"`
	Failed     int `json:"failed"`
}

var (
	errUnknownSection = errors.New("unknown profile section")
	errBadSectionBody = errors.New("malformed section body")
)
