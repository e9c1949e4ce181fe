package auth

import (
	"strings"
	"testing"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/modules/auth/providers"
)

func TestNewAPIToken(t *testing.T) {
	token, err := newAPIToken()
	if err != nil {
		t.Fatalf("newAPIToken() error = %v", err)
	}
	if !strings.HasPrefix(token, apiTokenPrefix) {
		t.Errorf("token %q should start with %q", token, apiTokenPrefix)
	}
	if len(token) != len(apiTokenPrefix)+40 {
		t.Errorf("token length = %d, want %d", len(token), len(apiTokenPrefix)+40)
	}

	other, err := newAPIToken()
	if err != nil {
		t.Fatalf("newAPIToken() error = %v", err)
	}
	if token == other {
		t.Error("two tokens should not collide")
	}
}

func TestIdentityUsername(t *testing.T) {
	tests := []struct {
		name     string
		identity providers.Identity
		want     string
	}{
		{
			name:     "email local part",
			identity: providers.Identity{Provider: "firebase", Subject: "uid-1", Email: "Jane.Doe@example.com"},
			want:     "jane.doe",
		},
		{
			name:     "no email",
			identity: providers.Identity{Provider: "supabase", Subject: "9f8e7d6c5b4a3210"},
			want:     "supabase-9f8e7d6c",
		},
		{
			name:     "short subject",
			identity: providers.Identity{Provider: "firebase", Subject: "ab12"},
			want:     "firebase-ab12",
		},
		{
			name:     "email stripped to nothing",
			identity: providers.Identity{Provider: "firebase", Subject: "uid00001", Email: "---@example.com"},
			want:     "firebase-uid00001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := identityUsername(&tt.identity); got != tt.want {
				t.Errorf("identityUsername() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jane.Doe", "jane.doe"},
		{"user+tag", "usertag"},
		{"__weird__", "weird"},
		{"有趣", ""},
		{"a b c", "abc"},
	}
	for _, tt := range tests {
		if got := sanitizeUsername(tt.in); got != tt.want {
			t.Errorf("sanitizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("Alice", "alice01"); got != "Alice" {
		t.Errorf("displayName = %q", got)
	}
	if got := displayName("  ", "alice01"); got != "alice01" {
		t.Errorf("displayName fallback = %q", got)
	}
}

func TestCredentialSourcesKeyChangesWithConfig(t *testing.T) {
	a := credentialSourcesKey([]config.CredentialSource{{Type: "firebase", Enabled: true, ProjectID: "p1"}})
	b := credentialSourcesKey([]config.CredentialSource{{Type: "firebase", Enabled: true, ProjectID: "p2"}})
	if a == b {
		t.Error("keys for different sources should differ")
	}
	if a != credentialSourcesKey([]config.CredentialSource{{Type: "firebase", Enabled: true, ProjectID: "p1"}}) {
		t.Error("key should be stable for identical sources")
	}
}
