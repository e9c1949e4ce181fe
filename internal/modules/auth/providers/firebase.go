package providers

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Google publishes the securetoken signing certs here, rotated a few times
// a day. The Cache-Control max-age on the response says how long they hold.
const firebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// Firebase verifies Firebase Authentication ID tokens (RS256, kid-selected
// against the cached Google certs).
type Firebase struct {
	projectID string
	certsURL  string
	client    *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	refreshAt time.Time
}

func NewFirebase(projectID string) *Firebase {
	return &Firebase{
		projectID: strings.TrimSpace(projectID),
		certsURL:  firebaseCertsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *Firebase) Type() string { return "firebase" }

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwtlib.RegisteredClaims
}

func (f *Firebase) Verify(ctx context.Context, credential string) (*Identity, error) {
	claims := &firebaseClaims{}
	token, err := jwtlib.ParseWithClaims(credential, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("kid header missing")
		}
		return f.publicKey(ctx, kid)
	},
		jwtlib.WithIssuer(firebaseIssuerPrefix+f.projectID),
		jwtlib.WithAudience(f.projectID),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidCredential
	}

	return &Identity{
		Provider: f.Type(),
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}

func (f *Firebase) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	f.mu.RLock()
	key, ok := f.keys[kid]
	fresh := time.Now().Before(f.refreshAt)
	f.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := f.refreshKeys(ctx); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	key, ok = f.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no signing cert for kid %q", kid)
	}
	return key, nil
}

func (f *Firebase) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.certsURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := parseCertPublicKey(pemCert)
		if err != nil {
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return errors.New("no usable signing certs")
	}

	f.mu.Lock()
	f.keys = keys
	f.refreshAt = time.Now().Add(certsMaxAge(resp.Header.Get("Cache-Control")))
	f.mu.Unlock()
	return nil
}

func parseCertPublicKey(pemCert string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemCert))
	if block == nil {
		return nil, errors.New("invalid pem block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("cert key is not rsa")
	}
	return key, nil
}

func certsMaxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 5 * time.Minute
}
