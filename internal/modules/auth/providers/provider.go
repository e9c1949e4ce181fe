// Package providers verifies external login credentials. Each verifier
// exchanges a provider-issued ID token for a neutral Identity, so the rest
// of the application never needs to know which provider a caller came from.
package providers

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/clauselens/core/internal/config"
)

// Identity is a verified external credential subject.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Verifier checks one provider's credentials.
type Verifier interface {
	Type() string
	Verify(ctx context.Context, credential string) (*Identity, error)
}

var (
	ErrUnknownProvider   = errors.New("unknown credential provider")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Registry holds the configured verifiers keyed by provider type.
type Registry struct {
	verifiers map[string]Verifier
}

func NewRegistry(verifiers ...Verifier) *Registry {
	r := &Registry{verifiers: map[string]Verifier{}}
	for _, v := range verifiers {
		r.Register(v)
	}
	return r
}

// FromConfig builds a registry from the configured credential sources.
// Disabled or incomplete sources are skipped.
func FromConfig(sources []config.CredentialSource) *Registry {
	r := NewRegistry()
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(src.Type)) {
		case "firebase":
			if strings.TrimSpace(src.ProjectID) != "" {
				r.Register(NewFirebase(src.ProjectID))
			}
		case "supabase":
			if strings.TrimSpace(src.JWTSecret) != "" {
				r.Register(NewSupabase(src.URL, src.JWTSecret))
			}
		}
	}
	return r
}

func (r *Registry) Register(v Verifier) {
	r.verifiers[strings.ToLower(v.Type())] = v
}

// Types lists the registered provider types in stable order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.verifiers))
	for t := range r.verifiers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Verify dispatches a credential to the named provider's verifier.
func (r *Registry) Verify(ctx context.Context, providerType, credential string) (*Identity, error) {
	v, ok := r.verifiers[strings.ToLower(strings.TrimSpace(providerType))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return v.Verify(ctx, credential)
}
