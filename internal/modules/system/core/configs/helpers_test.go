package configs

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestKeyConversionRoundTrip(t *testing.T) {
	cases := map[string]string{
		"max_document_kb":      "maxDocumentKB",
		"session_ttl_hours":    "sessionTTLHours",
		"pass_timeout_seconds": "passTimeoutSeconds",
		"enable_reports":       "enableReports",
		"provider_id":          "providerId",
		"ai":                   "ai",
		"url":                  "url",
	}
	for snake, camel := range cases {
		if got := snakeToCamelKey(snake); got != camel {
			t.Errorf("snakeToCamelKey(%q) = %q, want %q", snake, got, camel)
		}
		if got := camelToSnakeKey(camel); got != snake {
			t.Errorf("camelToSnakeKey(%q) = %q, want %q", camel, got, snake)
		}
	}
}

func TestDeepMergeJSONNestedMaps(t *testing.T) {
	old := map[string]interface{}{
		"enable": true,
		"smtp": map[string]interface{}{
			"user": "a@b.c",
			"pass": "secret",
		},
	}
	incoming := map[string]interface{}{
		"smtp": map[string]interface{}{
			"pass": "rotated",
		},
	}

	merged, ok := deepMergeJSON(old, incoming).(map[string]interface{})
	if !ok {
		t.Fatalf("merge did not produce a map")
	}
	if merged["enable"] != true {
		t.Errorf("untouched key lost: %v", merged["enable"])
	}
	smtp := merged["smtp"].(map[string]interface{})
	if smtp["user"] != "a@b.c" || smtp["pass"] != "rotated" {
		t.Errorf("nested merge wrong: %v", smtp)
	}
}

func TestDeepMergeJSONReplacesArrays(t *testing.T) {
	old := map[string]interface{}{
		"providers": []interface{}{"one", "two"},
	}
	incoming := map[string]interface{}{
		"providers": []interface{}{"three"},
	}

	merged := deepMergeJSON(old, incoming).(map[string]interface{})
	got := merged["providers"].([]interface{})
	if len(got) != 1 || got[0] != "three" {
		t.Errorf("arrays must be replaced wholesale, got %v", got)
	}
}

func TestNormalizeAnalysisOptionsLegacyKeys(t *testing.T) {
	in := map[string]interface{}{
		"pass_timeout":      60.0,
		"max_document_size": 256.0,
		"default_passes":    3.0,
	}
	out := normalizeAnalysisOptions(in).(map[string]interface{})

	if out["pass_timeout_seconds"] != 60.0 {
		t.Errorf("pass_timeout not migrated: %v", out)
	}
	if out["max_document_kb"] != 256.0 {
		t.Errorf("max_document_size not migrated: %v", out)
	}
	if _, exists := out["pass_timeout"]; exists {
		t.Errorf("legacy key survived: %v", out)
	}
	if out["default_passes"] != 3.0 {
		t.Errorf("unrelated key lost: %v", out)
	}
}

func TestNormalizeAnalysisOptionsCanonicalWins(t *testing.T) {
	in := map[string]interface{}{
		"pass_timeout_seconds": 90.0,
		"pass_timeout":         60.0,
	}
	out := normalizeAnalysisOptions(in).(map[string]interface{})
	if out["pass_timeout_seconds"] != 90.0 {
		t.Errorf("canonical key overwritten by legacy: %v", out)
	}
}

func TestNormalizeFeatureListLegacyKey(t *testing.T) {
	in := map[string]interface{}{"email_digest": true}
	out := normalizeFeatureList(in).(map[string]interface{})
	if out["daily_digest"] != true {
		t.Errorf("email_digest not migrated: %v", out)
	}
	if _, exists := out["email_digest"]; exists {
		t.Errorf("legacy key survived: %v", out)
	}
}

func TestNormalizeMailOptionsNestsFlatSMTPKeys(t *testing.T) {
	in := map[string]interface{}{
		"smtp": map[string]interface{}{
			"user":   "a@b.c",
			"host":   "smtp.example.com",
			"port":   465.0,
			"secure": true,
		},
	}
	out := normalizeMailOptions(in).(map[string]interface{})
	smtp := out["smtp"].(map[string]interface{})
	options, ok := smtp["options"].(map[string]interface{})
	if !ok {
		t.Fatalf("flat smtp keys not nested: %v", smtp)
	}
	if options["host"] != "smtp.example.com" || options["port"] != 465.0 || options["secure"] != true {
		t.Errorf("options wrong: %v", options)
	}
	if _, exists := smtp["host"]; exists {
		t.Errorf("flat host key survived: %v", smtp)
	}
	if smtp["user"] != "a@b.c" {
		t.Errorf("user must stay at smtp level: %v", smtp)
	}
}

func TestShouldEnableReports(t *testing.T) {
	cases := []struct {
		name    string
		partial map[string]json.RawMessage
		want    bool
	}{
		{"snake", map[string]json.RawMessage{"ai": json.RawMessage(`{"enable_reports": true}`)}, true},
		{"camel", map[string]json.RawMessage{"ai": json.RawMessage(`{"enableReports": "on"}`)}, true},
		{"disabling", map[string]json.RawMessage{"ai": json.RawMessage(`{"enable_reports": false}`)}, false},
		{"other section", map[string]json.RawMessage{"feature_list": json.RawMessage(`{"daily_digest": true}`)}, false},
		{"empty", map[string]json.RawMessage{}, false},
	}
	for _, tc := range cases {
		if got := shouldEnableReports(tc.partial); got != tc.want {
			t.Errorf("%s: shouldEnableReports = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestConvertMapKeysRecursesIntoArrays(t *testing.T) {
	in := map[string]interface{}{
		"credential_sources": []interface{}{
			map[string]interface{}{"project_id": "p1"},
		},
	}
	out := convertMapKeys(in, snakeToCamelKey).(map[string]interface{})
	want := map[string]interface{}{
		"credentialSources": []interface{}{
			map[string]interface{}{"projectId": "p1"},
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("convertMapKeys = %v, want %v", out, want)
	}
}
