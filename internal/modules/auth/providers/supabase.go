package providers

import (
	"context"
	"fmt"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Supabase verifies Supabase Auth access tokens, signed HS256 with the
// project JWT secret.
type Supabase struct {
	issuer string
	secret []byte
}

func NewSupabase(projectURL, jwtSecret string) *Supabase {
	issuer := ""
	if url := strings.TrimRight(strings.TrimSpace(projectURL), "/"); url != "" {
		issuer = url + "/auth/v1"
	}
	return &Supabase{issuer: issuer, secret: []byte(jwtSecret)}
}

func (s *Supabase) Type() string { return "supabase" }

type supabaseClaims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
	jwtlib.RegisteredClaims
}

func (s *Supabase) Verify(ctx context.Context, credential string) (*Identity, error) {
	claims := &supabaseClaims{}
	token, err := jwtlib.ParseWithClaims(credential, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwtlib.WithAudience("authenticated"),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidCredential
	}
	// Issuer is only pinned when a project URL is configured.
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidCredential)
	}

	name := claims.UserMetadata.Name
	if name == "" {
		name = claims.UserMetadata.FullName
	}
	return &Identity{
		Provider: s.Type(),
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     name,
	}, nil
}
