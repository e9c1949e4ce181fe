package providers

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/clauselens/core/internal/config"
)

type stubVerifier struct {
	typ      string
	identity *Identity
	err      error
	calls    int
}

func (s *stubVerifier) Type() string { return s.typ }

func (s *stubVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	s.calls++
	return s.identity, s.err
}

func TestRegistryDispatchesByType(t *testing.T) {
	want := &Identity{Provider: "stub", Subject: "abc"}
	stub := &stubVerifier{typ: "Stub", identity: want}
	r := NewRegistry(stub)

	got, err := r.Verify(context.Background(), "stub", "credential")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != want {
		t.Errorf("Verify() = %+v, want %+v", got, want)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}

	// Lookup is case-insensitive and trims whitespace.
	if _, err := r.Verify(context.Background(), "  STUB ", "credential"); err != nil {
		t.Errorf("Verify(STUB) error = %v", err)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Verify(context.Background(), "firebase", "credential"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Verify() error = %v, want ErrUnknownProvider", err)
	}
}

func TestFromConfig(t *testing.T) {
	r := FromConfig([]config.CredentialSource{
		{Type: "firebase", Enabled: true, ProjectID: "proj-1"},
		{Type: "supabase", Enabled: true, URL: "https://abc.supabase.co", JWTSecret: "secret"},
		{Type: "firebase", Enabled: false, ProjectID: "disabled"},
	})

	if got, want := r.Types(), []string{"firebase", "supabase"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestFromConfigSkipsIncompleteSources(t *testing.T) {
	r := FromConfig([]config.CredentialSource{
		{Type: "firebase", Enabled: true},                                 // no project id
		{Type: "supabase", Enabled: true, URL: "https://abc.supabase.co"}, // no secret
		{Type: "ldap", Enabled: true},                                     // unsupported
	})

	if got := r.Types(); len(got) != 0 {
		t.Errorf("Types() = %v, want empty", got)
	}
}
