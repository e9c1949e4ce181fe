package passkey

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/clauselens/core/internal/models"
	"github.com/go-webauthn/webauthn/protocol"
)

func TestWAUserAdaptsAccount(t *testing.T) {
	u := &waUser{
		user: &models.UserModel{
			Base:     models.Base{ID: "user-1"},
			Username: "alice",
			Name:     "Alice",
		},
		creds: []models.PasskeyCredential{
			{
				CredentialID:         []byte{1, 2, 3},
				CredentialPublicKey:  []byte{4, 5, 6},
				Counter:              7,
				Transports:           models.StringArray{"internal", "hybrid"},
				CredentialDeviceType: multiDevice,
				CredentialBackedUp:   true,
			},
		},
	}

	if !bytes.Equal(u.WebAuthnID(), []byte("user-1")) {
		t.Errorf("WebAuthnID() = %q", u.WebAuthnID())
	}
	if u.WebAuthnName() != "alice" {
		t.Errorf("WebAuthnName() = %q", u.WebAuthnName())
	}
	if u.WebAuthnDisplayName() != "Alice" {
		t.Errorf("WebAuthnDisplayName() = %q", u.WebAuthnDisplayName())
	}

	creds := u.WebAuthnCredentials()
	if len(creds) != 1 {
		t.Fatalf("credentials = %d, want 1", len(creds))
	}
	cred := creds[0]
	if !bytes.Equal(cred.ID, []byte{1, 2, 3}) {
		t.Errorf("ID = %v", cred.ID)
	}
	if cred.Authenticator.SignCount != 7 {
		t.Errorf("SignCount = %d, want 7", cred.Authenticator.SignCount)
	}
	if !cred.Flags.BackupEligible || !cred.Flags.BackupState {
		t.Errorf("Flags = %+v, want backup eligible and backed up", cred.Flags)
	}
	want := []protocol.AuthenticatorTransport{protocol.AuthenticatorTransport("internal"), protocol.AuthenticatorTransport("hybrid")}
	if !reflect.DeepEqual(cred.Transport, want) {
		t.Errorf("Transport = %v, want %v", cred.Transport, want)
	}
}

func TestWAUserDisplayNameFallsBackToUsername(t *testing.T) {
	u := &waUser{user: &models.UserModel{Username: "bob"}}
	if u.WebAuthnDisplayName() != "bob" {
		t.Errorf("WebAuthnDisplayName() = %q, want bob", u.WebAuthnDisplayName())
	}
}

func TestTransportStrings(t *testing.T) {
	got := transportStrings([]protocol.AuthenticatorTransport{
		protocol.AuthenticatorTransport("usb"),
		protocol.AuthenticatorTransport("internal"),
	})
	if !reflect.DeepEqual(got, models.StringArray{"usb", "internal"}) {
		t.Errorf("transportStrings() = %v", got)
	}
	if got := transportStrings(nil); len(got) != 0 {
		t.Errorf("transportStrings(nil) = %v, want empty", got)
	}
}

func TestDeviceTypeFor(t *testing.T) {
	if got := deviceTypeFor(true); got != multiDevice {
		t.Errorf("deviceTypeFor(true) = %q", got)
	}
	if got := deviceTypeFor(false); got != singleDevice {
		t.Errorf("deviceTypeFor(false) = %q", got)
	}
}

func TestCredentialFromModelDeviceFlags(t *testing.T) {
	single := credentialFromModel(models.PasskeyCredential{CredentialDeviceType: singleDevice})
	if single.Flags.BackupEligible {
		t.Error("single-device credential should not be backup eligible")
	}
	multi := credentialFromModel(models.PasskeyCredential{CredentialDeviceType: multiDevice})
	if !multi.Flags.BackupEligible {
		t.Error("multi-device credential should be backup eligible")
	}
}
