// Package passkey drives WebAuthn registration and login ceremonies.
// Ceremony state lives in redis so a ceremony can finish on another
// cluster worker than the one that started it.
package passkey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/models"
	authpkg "github.com/clauselens/core/internal/modules/auth"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	redisc "github.com/clauselens/core/internal/pkg/redis"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"gorm.io/gorm"
)

const (
	registerKeyPrefix = "cl:passkey:register:"
	loginKeyPrefix    = "cl:passkey:login:"
	ceremonyTTL       = 5 * time.Minute
)

type Handler struct {
	db      *gorm.DB
	rc      *redisc.Client
	cfgSvc  *appconfigs.Service
	authSvc *authpkg.Service
}

func NewHandler(db *gorm.DB, rc *redisc.Client, cfgSvc *appconfigs.Service, authSvc *authpkg.Service) *Handler {
	return &Handler{db: db, rc: rc, cfgSvc: cfgSvc, authSvc: authSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/passkey")

	g.POST("/register", authMW, h.beginRegistration)
	g.POST("/register/verify", authMW, h.finishRegistration)
	g.POST("/login", h.beginLogin)
	g.POST("/login/verify", h.finishLogin)
	g.GET("/items", authMW, h.listItems)
	g.DELETE("/items/:id", authMW, h.deleteItem)
}

// POST /passkey/register  [auth]
func (h *Handler) beginRegistration(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	wu, err := h.loadWebAuthnUser(userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	wa, err := h.webAuthn(c)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	creds := wu.WebAuthnCredentials()
	exclusions := make([]protocol.CredentialDescriptor, 0, len(creds))
	for i := range creds {
		exclusions = append(exclusions, creds[i].Descriptor())
	}

	options, session, err := wa.BeginRegistration(wu,
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationPreferred,
		}),
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.storeSession(c, registerKeyPrefix+userID, session); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, options)
}

// POST /passkey/register/verify  [auth]
func (h *Handler) finishRegistration(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	raw, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// The attestation payload may carry a display name alongside the
	// credential fields; the parser ignores it.
	var named struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &named)

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(raw))
	if err != nil {
		response.BadRequest(c, "invalid credential payload")
		return
	}

	session, err := h.takeSession(c, registerKeyPrefix+userID)
	if err != nil {
		response.BadRequest(c, "ceremony not found or expired")
		return
	}

	wu, err := h.loadWebAuthnUser(userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	wa, err := h.webAuthn(c)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	cred, err := wa.CreateCredential(wu, *session, parsed)
	if err != nil {
		response.BadRequest(c, "credential verification failed")
		return
	}

	item := models.PasskeyCredential{
		UserID:               userID,
		Name:                 h.uniqueName(userID, strings.TrimSpace(named.Name)),
		CredentialID:         cred.ID,
		CredentialPublicKey:  cred.PublicKey,
		Counter:              cred.Authenticator.SignCount,
		Transports:           transportStrings(cred.Transport),
		CredentialDeviceType: deviceTypeFor(cred.Flags.BackupEligible),
		CredentialBackedUp:   cred.Flags.BackupState,
	}
	if err := h.db.Create(&item).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"verified": true, "id": item.ID, "name": item.Name})
}

// POST /passkey/login
func (h *Handler) beginLogin(c *gin.Context) {
	wa, err := h.webAuthn(c)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	options, session, err := wa.BeginDiscoverableLogin(
		webauthn.WithUserVerification(protocol.VerificationPreferred),
	)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.storeSession(c, loginKeyPrefix+session.Challenge, session); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, options)
}

// POST /passkey/login/verify
func (h *Handler) finishLogin(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(raw))
	if err != nil {
		response.BadRequest(c, "invalid credential payload")
		return
	}

	// The ceremony is keyed by its challenge, which the assertion echoes.
	session, err := h.takeSession(c, loginKeyPrefix+parsed.Response.CollectedClientData.Challenge)
	if err != nil {
		response.BadRequest(c, "ceremony not found or expired")
		return
	}

	wa, err := h.webAuthn(c)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	var account *models.UserModel
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		wu, err := h.resolveUser(rawID, userHandle)
		if err != nil {
			return nil, err
		}
		account = wu.user
		return wu, nil
	}

	cred, err := wa.ValidateDiscoverableLogin(handler, *session, parsed)
	if err != nil || account == nil || cred.Authenticator.CloneWarning {
		response.ForbiddenMsg(c, "passkey rejected")
		return
	}

	now := time.Now()
	h.db.Model(&models.PasskeyCredential{}).
		Where("user_id = ? AND credential_id = ?", account.ID, cred.ID).
		Updates(map[string]interface{}{
			"counter":              cred.Authenticator.SignCount,
			"credential_backed_up": cred.Flags.BackupState,
			"last_used_at":         now,
		})

	token, err := h.authSvc.IssueSession(account, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":       account.ID,
			"username": account.Username,
			"name":     account.Name,
			"role":     account.Role,
		},
	})
}

// GET /passkey/items  [auth]
func (h *Handler) listItems(c *gin.Context) {
	var items []models.PasskeyCredential
	err := h.db.Where("user_id = ?", middleware.CurrentUserID(c)).
		Order("created_at DESC").Find(&items).Error
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"id":         item.ID,
			"name":       item.Name,
			"deviceType": item.CredentialDeviceType,
			"backedUp":   item.CredentialBackedUp,
			"transports": []string(item.Transports),
			"created":    item.CreatedAt,
			"lastUsed":   item.LastUsedAt,
		})
	}
	response.OK(c, gin.H{"data": out})
}

// DELETE /passkey/items/:id  [auth]
func (h *Handler) deleteItem(c *gin.Context) {
	result := h.db.Where("id = ? AND user_id = ?", c.Param("id"), middleware.CurrentUserID(c)).
		Delete(&models.PasskeyCredential{})
	if result.Error != nil {
		response.InternalError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		response.NotFoundMsg(c, "passkey not found")
		return
	}
	response.NoContent(c)
}

func (h *Handler) resolveUser(rawID, userHandle []byte) (*waUser, error) {
	userID := string(userHandle)
	if userID == "" {
		var item models.PasskeyCredential
		if err := h.db.Where("credential_id = ?", rawID).First(&item).Error; err != nil {
			return nil, err
		}
		userID = item.UserID
	}
	return h.loadWebAuthnUser(userID)
}

func (h *Handler) loadWebAuthnUser(userID string) (*waUser, error) {
	var u models.UserModel
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	var creds []models.PasskeyCredential
	if err := h.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&creds).Error; err != nil {
		return nil, err
	}
	return &waUser{user: &u, creds: creds}, nil
}

func (h *Handler) webAuthn(c *gin.Context) (*webauthn.WebAuthn, error) {
	cfg, err := h.cfgSvc.Get()
	if err != nil {
		return nil, err
	}
	pk := cfg.AuthSecurity.Passkey

	rpID := strings.TrimSpace(pk.RPID)
	if rpID == "" {
		rpID = requestHostname(c)
	}

	origins := make([]string, 0, len(pk.RPOrigins)+1)
	for _, o := range pk.RPOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		if origin := c.GetHeader("Origin"); origin != "" {
			origins = append(origins, origin)
		}
	}

	name := strings.TrimSpace(pk.RPDisplayName)
	if name == "" {
		name = "ClauseLens"
	}

	return webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: name,
		RPOrigins:     origins,
	})
}

func (h *Handler) uniqueName(userID, base string) string {
	if base == "" {
		base = "Passkey"
	}
	name := base
	for i := 1; i < 1000; i++ {
		var count int64
		_ = h.db.Model(&models.PasskeyCredential{}).
			Where("user_id = ? AND name = ?", userID, name).Count(&count).Error
		if count == 0 {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli())
}

func requestHostname(c *gin.Context) string {
	host := c.Request.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		host = "localhost"
	}
	return host
}
