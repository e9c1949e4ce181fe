package providers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const firebaseTestProject = "clauselens-test"

type firebaseTestEnv struct {
	verifier *Firebase
	key      *rsa.PrivateKey
	server   *httptest.Server
	hits     *int
}

func newFirebaseTestEnv(t *testing.T) *firebaseTestEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	pemCert := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(map[string]string{"key-1": pemCert})
	}))
	t.Cleanup(server.Close)

	v := NewFirebase(firebaseTestProject)
	v.certsURL = server.URL

	return &firebaseTestEnv{verifier: v, key: key, server: server, hits: &hits}
}

func (env *firebaseTestEnv) sign(t *testing.T, kid string, mutate func(*firebaseClaims)) string {
	t.Helper()

	claims := firebaseClaims{
		Email: "user@example.com",
		Name:  "Example User",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "firebase-uid-1",
			Audience:  jwtlib.ClaimStrings{firebaseTestProject},
			Issuer:    firebaseIssuerPrefix + firebaseTestProject,
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(&claims)
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(env.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestFirebaseVerify(t *testing.T) {
	env := newFirebaseTestEnv(t)

	identity, err := env.verifier.Verify(context.Background(), env.sign(t, "key-1", nil))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.Provider != "firebase" {
		t.Errorf("Provider = %q, want firebase", identity.Provider)
	}
	if identity.Subject != "firebase-uid-1" {
		t.Errorf("Subject = %q", identity.Subject)
	}
	if identity.Email != "user@example.com" {
		t.Errorf("Email = %q", identity.Email)
	}
	if identity.Name != "Example User" {
		t.Errorf("Name = %q", identity.Name)
	}
}

func TestFirebaseVerifyCachesCerts(t *testing.T) {
	env := newFirebaseTestEnv(t)

	for i := 0; i < 3; i++ {
		if _, err := env.verifier.Verify(context.Background(), env.sign(t, "key-1", nil)); err != nil {
			t.Fatalf("Verify() #%d error = %v", i, err)
		}
	}
	if *env.hits != 1 {
		t.Errorf("cert fetches = %d, want 1", *env.hits)
	}
}

func TestFirebaseVerifyRejectsUnknownKid(t *testing.T) {
	env := newFirebaseTestEnv(t)

	_, err := env.verifier.Verify(context.Background(), env.sign(t, "key-2", nil))
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
	if !strings.Contains(err.Error(), "key-2") {
		t.Errorf("error should name the missing kid, got %v", err)
	}
}

func TestFirebaseVerifyRejectsWrongAudience(t *testing.T) {
	env := newFirebaseTestEnv(t)

	token := env.sign(t, "key-1", func(c *firebaseClaims) {
		c.Audience = jwtlib.ClaimStrings{"another-project"}
	})
	if _, err := env.verifier.Verify(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestFirebaseVerifyRejectsWrongIssuer(t *testing.T) {
	env := newFirebaseTestEnv(t)

	token := env.sign(t, "key-1", func(c *firebaseClaims) {
		c.Issuer = firebaseIssuerPrefix + "another-project"
	})
	if _, err := env.verifier.Verify(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestFirebaseVerifyRejectsExpired(t *testing.T) {
	env := newFirebaseTestEnv(t)

	token := env.sign(t, "key-1", func(c *firebaseClaims) {
		c.ExpiresAt = jwtlib.NewNumericDate(time.Now().Add(-time.Minute))
	})
	if _, err := env.verifier.Verify(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestFirebaseVerifyRejectsMissingKid(t *testing.T) {
	env := newFirebaseTestEnv(t)

	claims := firebaseClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "firebase-uid-1",
			Audience:  jwtlib.ClaimStrings{firebaseTestProject},
			Issuer:    firebaseIssuerPrefix + firebaseTestProject,
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(env.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := env.verifier.Verify(context.Background(), signed); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
	}
}

func TestCertsMaxAge(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"standard", "public, max-age=21600, must-revalidate", 6 * time.Hour},
		{"bare", "max-age=60", time.Minute},
		{"missing", "no-store", 5 * time.Minute},
		{"empty", "", 5 * time.Minute},
		{"garbage", "max-age=soon", 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := certsMaxAge(tt.header); got != tt.want {
				t.Errorf("certsMaxAge(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
