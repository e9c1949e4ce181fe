package webhook

import (
	"crypto/sha1"
	"crypto/sha256"
	"reflect"
	"testing"
)

func TestNormalizeWebhookEvents(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "uppercases and deduplicates",
			in:   []string{"analysis_completed", "ANALYSIS_COMPLETED", "alert_triggered"},
			want: []string{"ANALYSIS_COMPLETED", "ALERT_TRIGGERED"},
		},
		{
			name: "all short-circuits",
			in:   []string{"ANALYSIS_COMPLETED", "All"},
			want: []string{"all"},
		},
		{
			name: "unknown events dropped",
			in:   []string{"POST_CREATE", "ANALYSIS_FAILED"},
			want: []string{"ANALYSIS_FAILED"},
		},
		{
			name: "blank entries skipped",
			in:   []string{"  ", "", "ALERT_TRIGGERED"},
			want: []string{"ALERT_TRIGGERED"},
		},
		{
			name: "empty input",
			in:   nil,
			want: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeWebhookEvents(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("normalizeWebhookEvents(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestWebhookContainsEvent(t *testing.T) {
	if !webhookContainsEvent([]string{"ANALYSIS_COMPLETED"}, "analysis_completed") {
		t.Error("case-insensitive match failed")
	}
	if !webhookContainsEvent([]string{"all"}, "ALERT_TRIGGERED") {
		t.Error("all should match everything")
	}
	if webhookContainsEvent([]string{"ANALYSIS_COMPLETED"}, "ANALYSIS_FAILED") {
		t.Error("unrelated event matched")
	}
	if webhookContainsEvent(nil, "ANALYSIS_COMPLETED") {
		t.Error("empty hook matched")
	}
}

func TestSignWithHash(t *testing.T) {
	payload := "The quick brown fox jumps over the lazy dog"

	if got := signWithHash(sha1.New, "key", payload); got != "de7c9b85b8b78aa6bc8a7a36f70a90701c9db4d9" {
		t.Errorf("sha1 signature = %s", got)
	}
	if got := signWithHash(sha256.New, "key", payload); got != "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8" {
		t.Errorf("sha256 signature = %s", got)
	}
}

func TestToJSONMap(t *testing.T) {
	type sample struct {
		AnalysisID string `json:"analysisId"`
		Score      float64
	}

	got := toJSONMap(sample{AnalysisID: "a1", Score: 7.5})
	if got["analysisId"] != "a1" {
		t.Errorf("struct payload = %v", got)
	}

	passthrough := map[string]interface{}{"k": "v"}
	if !reflect.DeepEqual(toJSONMap(passthrough), passthrough) {
		t.Error("map payload should pass through")
	}

	wrapped := toJSONMap([]int{1, 2})
	if _, ok := wrapped["data"]; !ok {
		t.Errorf("array payload = %v, want wrapped under data", wrapped)
	}

	if got := toJSONMap(nil); len(got) != 0 {
		t.Errorf("nil payload = %v, want empty map", got)
	}
}

func TestParseJSONOrString(t *testing.T) {
	if got := parseJSONOrString([]byte(`{"ok":true}`)); got.(map[string]interface{})["ok"] != true {
		t.Errorf("json body = %v", got)
	}
	if got := parseJSONOrString([]byte("plain text")); got != "plain text" {
		t.Errorf("plain body = %v", got)
	}
	if got := parseJSONOrString(nil); got != "" {
		t.Errorf("empty body = %v", got)
	}
}
