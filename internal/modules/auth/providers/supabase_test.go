package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const supabaseTestSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signSupabaseToken(t *testing.T, secret string, mutate func(*jwtlib.RegisteredClaims)) string {
	t.Helper()

	claims := supabaseClaims{
		Email: "reader@example.com",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "6f1f0b1a-0000-4000-8000-000000000001",
			Audience:  jwtlib.ClaimStrings{"authenticated"},
			Issuer:    "https://abc.supabase.co/auth/v1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	claims.UserMetadata.Name = "Reader"
	if mutate != nil {
		mutate(&claims.RegisteredClaims)
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestSupabaseVerify(t *testing.T) {
	v := NewSupabase("https://abc.supabase.co", supabaseTestSecret)

	identity, err := v.Verify(context.Background(), signSupabaseToken(t, supabaseTestSecret, nil))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.Provider != "supabase" {
		t.Errorf("Provider = %q, want supabase", identity.Provider)
	}
	if identity.Subject != "6f1f0b1a-0000-4000-8000-000000000001" {
		t.Errorf("Subject = %q", identity.Subject)
	}
	if identity.Email != "reader@example.com" {
		t.Errorf("Email = %q", identity.Email)
	}
	if identity.Name != "Reader" {
		t.Errorf("Name = %q", identity.Name)
	}
}

func TestSupabaseVerifyRejectsWrongSecret(t *testing.T) {
	v := NewSupabase("https://abc.supabase.co", supabaseTestSecret)

	_, err := v.Verify(context.Background(), signSupabaseToken(t, "another-secret-that-is-also-long-enough", nil))
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestSupabaseVerifyRejectsExpired(t *testing.T) {
	v := NewSupabase("https://abc.supabase.co", supabaseTestSecret)

	token := signSupabaseToken(t, supabaseTestSecret, func(c *jwtlib.RegisteredClaims) {
		c.ExpiresAt = jwtlib.NewNumericDate(time.Now().Add(-time.Minute))
	})
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestSupabaseVerifyRejectsWrongAudience(t *testing.T) {
	v := NewSupabase("https://abc.supabase.co", supabaseTestSecret)

	token := signSupabaseToken(t, supabaseTestSecret, func(c *jwtlib.RegisteredClaims) {
		c.Audience = jwtlib.ClaimStrings{"anon"}
	})
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestSupabaseVerifyRejectsIssuerMismatch(t *testing.T) {
	v := NewSupabase("https://other.supabase.co", supabaseTestSecret)

	if _, err := v.Verify(context.Background(), signSupabaseToken(t, supabaseTestSecret, nil)); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestSupabaseVerifySkipsIssuerCheckWithoutURL(t *testing.T) {
	v := NewSupabase("", supabaseTestSecret)

	if _, err := v.Verify(context.Background(), signSupabaseToken(t, supabaseTestSecret, nil)); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestSupabaseVerifyFallsBackToFullName(t *testing.T) {
	v := NewSupabase("https://abc.supabase.co", supabaseTestSecret)

	claims := supabaseClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "subject-1",
			Audience:  jwtlib.ClaimStrings{"authenticated"},
			Issuer:    "https://abc.supabase.co/auth/v1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	claims.UserMetadata.FullName = "Full Name"
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(supabaseTestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	identity, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.Name != "Full Name" {
		t.Errorf("Name = %q, want Full Name", identity.Name)
	}
}
