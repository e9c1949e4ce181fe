package passes

import (
	"strings"

	"github.com/clauselens/core/internal/modules/personalization/profile"
)

// PassContext is the slice of a computed profile that analysis prompts are
// allowed to see. Field selection only; no scores are derived here.
type PassContext struct {
	Style profile.Style
	Tags  []string
}

// BuildPassContext selects the prompt-relevant fields of a profile. A nil
// profile yields a nil context and the run stays generic.
func BuildPassContext(p *profile.ComputedProfile) *PassContext {
	if p == nil {
		return nil
	}
	tags := make([]string, 0, len(p.ProfileTags))
	for _, tag := range p.ProfileTags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return &PassContext{
		Style: p.ExplanationStyle,
		Tags:  tags,
	}
}

// PromptHints renders the context as a single READER_PROFILE line. Empty when
// the context is nil or carries nothing.
func (c *PassContext) PromptHints() string {
	if c == nil {
		return ""
	}

	parts := make([]string, 0, 2)
	if hint, ok := explanationStyleHints[string(c.Style)]; ok {
		parts = append(parts, hint)
	}
	if len(c.Tags) > 0 {
		parts = append(parts, "Reader traits: "+strings.Join(c.Tags, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// ThresholdSet hands a profile's alert thresholds through to the aggregation
// boundary. Nil profile means no thresholds and therefore no alert flags.
func ThresholdSet(p *profile.ComputedProfile) *profile.AlertThresholds {
	if p == nil {
		return nil
	}
	t := p.AlertThresholds
	return &t
}
