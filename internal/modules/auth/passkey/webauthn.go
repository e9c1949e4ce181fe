package passkey

import (
	"encoding/json"
	"errors"

	"github.com/clauselens/core/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

const (
	singleDevice = "singleDevice"
	multiDevice  = "multiDevice"
)

var errCeremonyExpired = errors.New("ceremony not found or expired")

// waUser adapts an account and its stored credentials to the webauthn
// library's user interface. The user handle is the account ID.
type waUser struct {
	user  *models.UserModel
	creds []models.PasskeyCredential
}

func (u *waUser) WebAuthnID() []byte { return []byte(u.user.ID) }

func (u *waUser) WebAuthnName() string { return u.user.Username }

func (u *waUser) WebAuthnDisplayName() string {
	if u.user.Name != "" {
		return u.user.Name
	}
	return u.user.Username
}

func (u *waUser) WebAuthnCredentials() []webauthn.Credential {
	out := make([]webauthn.Credential, 0, len(u.creds))
	for _, c := range u.creds {
		out = append(out, credentialFromModel(c))
	}
	return out
}

func credentialFromModel(m models.PasskeyCredential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(m.Transports))
	for _, t := range m.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:        m.CredentialID,
		PublicKey: m.CredentialPublicKey,
		Transport: transports,
		Flags: webauthn.CredentialFlags{
			BackupEligible: m.CredentialDeviceType == multiDevice,
			BackupState:    m.CredentialBackedUp,
		},
		Authenticator: webauthn.Authenticator{
			SignCount: m.Counter,
		},
	}
}

func transportStrings(transports []protocol.AuthenticatorTransport) models.StringArray {
	out := make(models.StringArray, 0, len(transports))
	for _, t := range transports {
		out = append(out, string(t))
	}
	return out
}

func deviceTypeFor(backupEligible bool) string {
	if backupEligible {
		return multiDevice
	}
	return singleDevice
}

func (h *Handler) storeSession(c *gin.Context, key string, session *webauthn.SessionData) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return h.rc.Set(c.Request.Context(), key, raw, ceremonyTTL)
}

// takeSession consumes ceremony state: a stored session verifies once.
func (h *Handler) takeSession(c *gin.Context, key string) (*webauthn.SessionData, error) {
	raw, err := h.rc.Get(c.Request.Context(), key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errCeremonyExpired
	}
	_ = h.rc.Del(c.Request.Context(), key)

	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, err
	}
	return &session, nil
}
