package passes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clauselens/core/internal/modules/analysis/aggregate"
)

var errNoCategories = errors.New("no scored categories in model output")

// unmarshalModelJSON decodes model output that may arrive fenced or padded
// with prose. It tries the cleaned string first, then the outermost object.
func unmarshalModelJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON response from AI")
}

// ParsePass turns one raw model response into a scored pass. Category keys
// are lower-cased, scores clamped into [0,10] and confidences into [0,1];
// a response without any usable category is an error.
func ParsePass(raw, providerName, model string) (aggregate.Pass, error) {
	var payload struct {
		Categories map[string]struct {
			Score      float64 `json:"score"`
			Confidence float64 `json:"confidence"`
		} `json:"categories"`
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"keyPoints"`
	}
	if err := unmarshalModelJSON(raw, &payload); err != nil {
		return aggregate.Pass{}, err
	}

	categories := make(map[string]aggregate.CategoryScore, len(payload.Categories))
	for name, score := range payload.Categories {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		categories[key] = aggregate.CategoryScore{
			Score:      clampFloat(score.Score, 0, 10),
			Confidence: clampFloat(score.Confidence, 0, 1),
		}
	}
	if len(categories) == 0 {
		return aggregate.Pass{}, errNoCategories
	}

	keyPoints := make([]string, 0, len(payload.KeyPoints))
	for _, point := range payload.KeyPoints {
		point = strings.TrimSpace(point)
		if point == "" {
			continue
		}
		keyPoints = append(keyPoints, point)
	}

	return aggregate.Pass{
		Categories: categories,
		Summary:    strings.TrimSpace(payload.Summary),
		KeyPoints:  keyPoints,
		Provider:   providerName,
		Model:      model,
	}, nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
