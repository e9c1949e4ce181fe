package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, "port: 4000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if !strings.Contains(cfg.DSN, "tcp(127.0.0.1:3306)/clauselens") {
		t.Errorf("DSN = %q, want default MySQL target", cfg.DSN)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q, want default redis URL", cfg.RedisURL)
	}
}

func TestLoadFlatAliases(t *testing.T) {
	path := writeConfigFile(t, strings.Join([]string{
		"db_host: db.internal",
		"db_password: s3cret",
		"db_name: clauselens_prod",
		"redis_host: cache.internal",
		"redis_db: 3",
		"cors_allowed_origins:",
		"  - https://dash.clauselens.app",
		"tz: UTC",
		"env: production",
	}, "\n")+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !strings.Contains(cfg.DSN, "tcp(db.internal:3306)/clauselens_prod") {
		t.Errorf("DSN = %q, flat db_* keys not applied", cfg.DSN)
	}
	if !strings.Contains(cfg.RedisURL, "cache.internal:6379/3") {
		t.Errorf("RedisURL = %q, flat redis_* keys not applied", cfg.RedisURL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://dash.clauselens.app" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", cfg.Timezone)
	}
	if cfg.IsDev() {
		t.Error("IsDev() = true for env: production")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, "prot: 8080\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted a misspelled key")
	}
}

func TestLoadRejectsBadPorts(t *testing.T) {
	for _, content := range []string{
		"port: 70000\n",
		"db_port: -1\n",
		"redis_port: 99999\n",
	} {
		path := writeConfigFile(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("Load() accepted %q", strings.TrimSpace(content))
		}
	}
}

func TestRedisURLValue(t *testing.T) {
	cases := []struct {
		name string
		cfg  RedisRuntimeConfig
		want string
	}{
		{
			name: "defaults",
			cfg:  RedisRuntimeConfig{Host: "localhost", Port: 6379},
			want: "redis://localhost:6379/0",
		},
		{
			name: "password only",
			cfg:  RedisRuntimeConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2},
			want: "redis://:pw@cache:6380/2",
		},
		{
			name: "tls",
			cfg:  RedisRuntimeConfig{Host: "cache", Port: 6379, TLS: true},
			want: "rediss://cache:6379/0",
		},
		{
			name: "raw url wins",
			cfg:  RedisRuntimeConfig{URL: "redis://explicit:1234/9", Host: "ignored"},
			want: "redis://explicit:1234/9",
		},
		{
			name: "bare url gets scheme",
			cfg:  RedisRuntimeConfig{URL: "cache.internal:6379"},
			want: "redis://cache.internal:6379",
		},
	}
	for _, tc := range cases {
		if got := tc.cfg.URLValue(); got != tc.want {
			t.Errorf("%s: URLValue() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSMTPConfigLegacyShapes(t *testing.T) {
	var nested SMTPConfig
	if err := json.Unmarshal([]byte(`{"user":"a@b.c","pass":"pw","options":{"host":"smtp.b.c","port":587,"secure":false}}`), &nested); err != nil {
		t.Fatalf("nested unmarshal: %v", err)
	}
	if nested.Options.Host != "smtp.b.c" || nested.Options.Port != 587 || nested.Options.Secure {
		t.Errorf("nested options = %+v", nested.Options)
	}

	var flat SMTPConfig
	if err := json.Unmarshal([]byte(`{"auth":{"user":"a@b.c","pass":"pw"},"host":"smtp.b.c","port":25}`), &flat); err != nil {
		t.Fatalf("flat unmarshal: %v", err)
	}
	if flat.User != "a@b.c" || flat.Options.Host != "smtp.b.c" || flat.Options.Port != 25 {
		t.Errorf("flat shape = %+v", flat)
	}

	var empty SMTPConfig
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatalf("empty unmarshal: %v", err)
	}
	if empty.Options.Port != 465 {
		t.Errorf("default port = %d, want 465", empty.Options.Port)
	}
}

func TestAIModelAssignmentLegacyString(t *testing.T) {
	var ai AIConfig
	if err := json.Unmarshal([]byte(`{"analysis_model":"claude-sonnet-4-5"}`), &ai); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ai.AnalysisModel == nil || ai.AnalysisModel.Model != "claude-sonnet-4-5" {
		t.Errorf("AnalysisModel = %+v, legacy string form not handled", ai.AnalysisModel)
	}

	if err := json.Unmarshal([]byte(`{"analysis_model":null}`), &ai); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if ai.AnalysisModel != nil {
		t.Errorf("AnalysisModel = %+v, want nil after explicit null", ai.AnalysisModel)
	}
}

func TestDefaultFullConfigRoundTrip(t *testing.T) {
	def := DefaultFullConfig()
	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back FullConfig
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.AnalysisOpts.MaxPasses != def.AnalysisOpts.MaxPasses {
		t.Errorf("MaxPasses = %d, want %d", back.AnalysisOpts.MaxPasses, def.AnalysisOpts.MaxPasses)
	}
	if back.AuthSecurity.Passkey.RPID != "localhost" {
		t.Errorf("Passkey.RPID = %q", back.AuthSecurity.Passkey.RPID)
	}
	if back.BarkOptions.ServerURL != "https://api.day.app" {
		t.Errorf("BarkOptions.ServerURL = %q", back.BarkOptions.ServerURL)
	}
}
