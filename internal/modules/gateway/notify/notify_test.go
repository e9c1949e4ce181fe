package notify

import (
	"testing"
	"time"

	"github.com/clauselens/core/internal/config"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 5, 10, hour, minute, 0, 0, time.UTC)
}

func configWithWebURL(url string) *config.FullConfig {
	cfg := config.DefaultFullConfig()
	cfg.URL.WebURL = url
	return &cfg
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(12, 59), false},
		{at(13, 0), true},
		{at(16, 30), true},
		{at(16, 59), true},
		{at(17, 0), false},
	}
	for _, tc := range cases {
		if got := inQuietHours(tc.now, "13:00", "17:00"); got != tc.want {
			t.Errorf("inQuietHours(%s, 13:00-17:00) = %v, want %v", tc.now.Format("15:04"), got, tc.want)
		}
	}
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(21, 59), false},
		{at(22, 0), true},
		{at(23, 30), true},
		{at(0, 0), true},
		{at(6, 59), true},
		{at(7, 0), false},
		{at(12, 0), false},
	}
	for _, tc := range cases {
		if got := inQuietHours(tc.now, "22:00", "07:00"); got != tc.want {
			t.Errorf("inQuietHours(%s, 22:00-07:00) = %v, want %v", tc.now.Format("15:04"), got, tc.want)
		}
	}
}

func TestInQuietHoursDisabled(t *testing.T) {
	if inQuietHours(at(3, 0), "", "07:00") {
		t.Error("missing start should disable quiet hours")
	}
	if inQuietHours(at(3, 0), "22:00", "") {
		t.Error("missing end should disable quiet hours")
	}
	if inQuietHours(at(3, 0), "garbage", "07:00") {
		t.Error("unparseable start should disable quiet hours")
	}
	if inQuietHours(at(3, 0), "25:00", "07:00") {
		t.Error("out-of-range hour should disable quiet hours")
	}
	if inQuietHours(at(3, 0), "08:00", "08:00") {
		t.Error("zero-length window should disable quiet hours")
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"00:00", 0, true},
		{"23:59", 23*60 + 59, true},
		{"7:05", 7*60 + 5, true},
		{" 08:30 ", 8*60 + 30, true},
		{"", 0, false},
		{"8", 0, false},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"ab:cd", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseClock(tc.in)
		if ok != tc.wantOK || (ok && got != tc.want) {
			t.Errorf("parseClock(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestAnalysisDetailURLTrimsTrailingSlash(t *testing.T) {
	cfg := configWithWebURL("https://app.clauselens.io/")
	if got := analysisDetailURL(cfg, "a1"); got != "https://app.clauselens.io/analyses/a1" {
		t.Errorf("got %q", got)
	}
	if got := analysisDetailURL(configWithWebURL("  "), "a1"); got != "" {
		t.Errorf("blank base gave %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if got := firstNonEmpty("primary", "fallback"); got != "primary" {
		t.Errorf("got %q", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("got %q", got)
	}
}
