package passes

import (
	"strings"
	"testing"
)

func TestParsePassPlainJSON(t *testing.T) {
	pass, err := ParsePass(validPassJSON, "openai", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("ParsePass: %v", err)
	}

	privacy, ok := pass.Categories["privacy"]
	if !ok {
		t.Fatal("privacy category missing")
	}
	if privacy.Score != 7.5 || privacy.Confidence != 0.9 {
		t.Errorf("privacy = %+v, want score 7.5 confidence 0.9", privacy)
	}
	if pass.Summary != "Broad data sharing." {
		t.Errorf("summary = %q", pass.Summary)
	}
	if len(pass.KeyPoints) != 1 {
		t.Errorf("keyPoints = %v, want 1 entry", pass.KeyPoints)
	}
	if pass.Provider != "openai" || pass.Model != "gpt-4o-mini" {
		t.Errorf("provenance = %q/%q", pass.Provider, pass.Model)
	}
}

func TestParsePassFencedJSON(t *testing.T) {
	fenced := "```json\n" + validPassJSON + "\n```"
	pass, err := ParsePass(fenced, "", "")
	if err != nil {
		t.Fatalf("ParsePass(fenced): %v", err)
	}
	if len(pass.Categories) != 2 {
		t.Errorf("categories = %v, want 2", pass.Categories)
	}
}

func TestParsePassJSONBuriedInProse(t *testing.T) {
	raw := "Here is my assessment:\n" + validPassJSON + "\nLet me know if you need more."
	if _, err := ParsePass(raw, "", ""); err != nil {
		t.Fatalf("ParsePass(prose-wrapped): %v", err)
	}
}

func TestParsePassClampsRanges(t *testing.T) {
	raw := `{"categories":{"privacy":{"score":14,"confidence":1.7},"payment":{"score":-3,"confidence":-0.2}}}`
	pass, err := ParsePass(raw, "", "")
	if err != nil {
		t.Fatalf("ParsePass: %v", err)
	}
	if got := pass.Categories["privacy"]; got.Score != 10 || got.Confidence != 1 {
		t.Errorf("privacy = %+v, want clamped to 10/1", got)
	}
	if got := pass.Categories["payment"]; got.Score != 0 || got.Confidence != 0 {
		t.Errorf("payment = %+v, want clamped to 0/0", got)
	}
}

func TestParsePassNormalizesCategoryKeys(t *testing.T) {
	raw := `{"categories":{" Privacy ":{"score":5,"confidence":0.5},"":{"score":1,"confidence":0.1}}}`
	pass, err := ParsePass(raw, "", "")
	if err != nil {
		t.Fatalf("ParsePass: %v", err)
	}
	if _, ok := pass.Categories["privacy"]; !ok {
		t.Errorf("categories = %v, want lower-cased privacy key", pass.Categories)
	}
	if len(pass.Categories) != 1 {
		t.Errorf("empty category key survived: %v", pass.Categories)
	}
}

func TestParsePassRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		`{"summary":"no categories here"}`,
		`{"categories":{}}`,
	} {
		if _, err := ParsePass(raw, "", ""); err == nil {
			t.Errorf("ParsePass(%q) succeeded, want error", raw)
		}
	}
}

func TestParsePassDropsBlankKeyPoints(t *testing.T) {
	raw := `{"categories":{"privacy":{"score":5,"confidence":0.5}},"keyPoints":["  ","real point",""]}`
	pass, err := ParsePass(raw, "", "")
	if err != nil {
		t.Fatalf("ParsePass: %v", err)
	}
	if len(pass.KeyPoints) != 1 || pass.KeyPoints[0] != "real point" {
		t.Errorf("keyPoints = %v, want [real point]", pass.KeyPoints)
	}
}

func TestUnmarshalModelJSONVariants(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	cases := []string{
		`{"a":1}`,
		"```json\n{\"a\":1}\n```",
		"```\n{\"a\":1}\n```",
		"prefix {\"a\":1} suffix",
	}
	for _, raw := range cases {
		out.A = 0
		if err := unmarshalModelJSON(raw, &out); err != nil {
			t.Errorf("unmarshalModelJSON(%q): %v", raw, err)
			continue
		}
		if out.A != 1 {
			t.Errorf("unmarshalModelJSON(%q) decoded a=%d", raw, out.A)
		}
	}

	if err := unmarshalModelJSON("no braces here", &out); err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("garbage input error = %v", err)
	}
}
