package models

import "time"

// User roles. The first registered account becomes the owner and may manage
// every other account; members only see their own data.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// UserModel represents an extension account.
type UserModel struct {
	Base
	Username      string         `json:"username"        gorm:"uniqueIndex;not null"`
	Name          string         `json:"name"`
	Avatar        string         `json:"avatar"`
	Password      string         `json:"-"               gorm:"not null"`
	Mail          string         `json:"mail"            gorm:"index"`
	Role          string         `json:"role"            gorm:"default:'member'"`
	LastLoginTime *time.Time     `json:"last_login_time"`
	LastLoginIP   string         `json:"last_login_ip"`
	APITokens     []APIToken     `json:"api_tokens,omitempty" gorm:"foreignKey:UserID"`
	Identities    []UserIdentity `json:"identities,omitempty" gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string { return "users" }

// APIToken represents a personal API token for programmatic access.
type APIToken struct {
	Base
	UserID    string     `json:"-"          gorm:"index;not null"`
	Token     string     `json:"token"      gorm:"uniqueIndex;not null"`
	Name      string     `json:"name"`
	ExpiredAt *time.Time `json:"expired_at"`
}

func (APIToken) TableName() string { return "api_tokens" }

// UserIdentity links an external credential subject (Firebase UID, Supabase
// sub) to a local account. A subject is unique per provider.
type UserIdentity struct {
	Base
	UserID   string     `json:"-"        gorm:"index;not null"`
	Provider string     `json:"provider" gorm:"not null;index:idx_identity_subject,unique"`
	Subject  string     `json:"subject"  gorm:"not null;index:idx_identity_subject,unique"`
	Email    string     `json:"email"`
	LastUsed *time.Time `json:"last_used"`
}

func (UserIdentity) TableName() string { return "user_identities" }

// PasskeyCredential stores WebAuthn credentials registered by a user.
type PasskeyCredential struct {
	Base
	UserID               string      `json:"-"                       gorm:"index;not null"`
	Name                 string      `json:"name"                    gorm:"not null"`
	CredentialID         []byte      `json:"-"                       gorm:"type:blob"`
	CredentialPublicKey  []byte      `json:"-"                       gorm:"type:blob"`
	Counter              uint32      `json:"counter"`
	Transports           StringArray `json:"transports"              gorm:"type:longtext"`
	CredentialDeviceType string      `json:"credential_device_type"`
	CredentialBackedUp   bool        `json:"credential_backed_up"`
	LastUsedAt           *time.Time  `json:"last_used_at"`
}

func (PasskeyCredential) TableName() string { return "passkey_credentials" }
