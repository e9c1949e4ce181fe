package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/auth/providers"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	sessionpkg "github.com/clauselens/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const apiTokenPrefix = "clp-"

type Service struct {
	db     *gorm.DB
	cfgSvc *appconfigs.Service

	regMu  sync.Mutex
	regKey string
	reg    *providers.Registry
}

func NewService(db *gorm.DB, cfgSvc *appconfigs.Service) *Service {
	return &Service{db: db, cfgSvc: cfgSvc}
}

func (s *Service) Login(username, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(3 * time.Second)
			return "", nil, errUserNotFound
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(3 * time.Second)
		return "", nil, errWrongPassword
	}

	token, err := s.IssueSession(&u, ip, ua)
	return token, &u, err
}

// LoginExternal exchanges a provider credential for a local session,
// provisioning a linked account on first sight of the subject.
func (s *Service) LoginExternal(ctx context.Context, providerType, credential, ip, ua string) (string, *models.UserModel, error) {
	identity, err := s.Registry().Verify(ctx, providerType, credential)
	if err != nil {
		return "", nil, err
	}
	u, err := s.userForIdentity(identity)
	if err != nil {
		return "", nil, err
	}
	token, err := s.IssueSession(u, ip, ua)
	return token, u, err
}

func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	s.db.Model(&models.UserModel{}).Where("username = ?", dto.Username).Count(&count)
	if count > 0 {
		return nil, errUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.UserModel{
		Username: dto.Username,
		Password: string(hash),
		Name:     displayName(dto.Name, dto.Username),
		Mail:     strings.TrimSpace(dto.Mail),
		Role:     s.nextRole(),
	}
	return &u, s.db.Create(&u).Error
}

// IssueSession records the login on the user row and returns a signed
// session token.
func (s *Service) IssueSession(u *models.UserModel, ip, ua string) (string, error) {
	now := time.Now()
	s.db.Model(u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, s.SessionTTL())
	return token, err
}

func (s *Service) SessionTTL() time.Duration {
	if cfg, err := s.cfgSvc.Get(); err == nil && cfg.AuthSecurity.SessionTTLHours > 0 {
		return time.Duration(cfg.AuthSecurity.SessionTTLHours) * time.Hour
	}
	return sessionpkg.DefaultTTL
}

func (s *Service) PasswordLoginDisabled() bool {
	cfg, err := s.cfgSvc.Get()
	return err == nil && cfg.AuthSecurity.DisablePasswordLogin
}

// Registry returns the verifier registry for the currently configured
// credential sources, rebuilding it when they change. A rebuild drops the
// firebase cert cache, which only happens at config-change frequency.
func (s *Service) Registry() *providers.Registry {
	var sources []config.CredentialSource
	if cfg, err := s.cfgSvc.Get(); err == nil {
		sources = cfg.AuthSecurity.Credential
	}
	key := credentialSourcesKey(sources)

	s.regMu.Lock()
	defer s.regMu.Unlock()
	if s.reg == nil || s.regKey != key {
		s.reg = providers.FromConfig(sources)
		s.regKey = key
	}
	return s.reg
}

func credentialSourcesKey(sources []config.CredentialSource) string {
	raw, _ := json.Marshal(sources)
	return string(raw)
}

func (s *Service) userForIdentity(identity *providers.Identity) (*models.UserModel, error) {
	var link models.UserIdentity
	err := s.db.Where("provider = ? AND subject = ?", identity.Provider, identity.Subject).First(&link).Error
	if err == nil {
		now := time.Now()
		s.db.Model(&link).Updates(map[string]interface{}{
			"last_used": now,
			"email":     identity.Email,
		})
		var u models.UserModel
		if err := s.db.First(&u, "id = ?", link.UserID).Error; err != nil {
			return nil, err
		}
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.provisionIdentity(identity)
}

func (s *Service) provisionIdentity(identity *providers.Identity) (*models.UserModel, error) {
	now := time.Now()

	// An account with the same mail gets the identity linked instead of a
	// duplicate account.
	if identity.Email != "" {
		var u models.UserModel
		if err := s.db.Where("mail = ?", identity.Email).First(&u).Error; err == nil {
			link := models.UserIdentity{
				UserID:   u.ID,
				Provider: identity.Provider,
				Subject:  identity.Subject,
				Email:    identity.Email,
				LastUsed: &now,
			}
			return &u, s.db.Create(&link).Error
		}
	}

	// Provisioned accounts get an unguessable password; password login for
	// them only works after the user sets one.
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.UserModel{
		Username: s.uniqueUsername(identityUsername(identity)),
		Password: string(hash),
		Name:     displayName(identity.Name, ""),
		Mail:     identity.Email,
		Role:     s.nextRole(),
	}
	if u.Name == "" {
		u.Name = u.Username
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		link := models.UserIdentity{
			UserID:   u.ID,
			Provider: identity.Provider,
			Subject:  identity.Subject,
			Email:    identity.Email,
			LastUsed: &now,
		}
		return tx.Create(&link).Error
	})
	return &u, err
}

func (s *Service) nextRole() string {
	var count int64
	s.db.Model(&models.UserModel{}).Count(&count)
	if count == 0 {
		return models.RoleOwner
	}
	return models.RoleMember
}

func (s *Service) uniqueUsername(base string) string {
	if base == "" {
		base = "user"
	}
	name := base
	for i := 2; i < 1000; i++ {
		var count int64
		_ = s.db.Model(&models.UserModel{}).Where("username = ?", name).Count(&count).Error
		if count == 0 {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli())
}

func identityUsername(identity *providers.Identity) string {
	if at := strings.IndexByte(identity.Email, '@'); at > 0 {
		if name := sanitizeUsername(identity.Email[:at]); name != "" {
			return name
		}
	}
	subject := identity.Subject
	if len(subject) > 8 {
		subject = subject[:8]
	}
	return sanitizeUsername(identity.Provider + "-" + subject)
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-._")
}

func (s *Service) ListTokens(userID string) ([]models.APIToken, error) {
	var tokens []models.APIToken
	return tokens, s.db.Where("user_id = ? AND (expired_at IS NULL OR expired_at > ?)", userID, time.Now()).
		Order("created_at DESC").Find(&tokens).Error
}

func (s *Service) CreateToken(userID string, dto *CreateTokenDTO) (*models.APIToken, error) {
	token, err := newAPIToken()
	if err != nil {
		return nil, err
	}
	t := models.APIToken{
		UserID:    userID,
		Token:     token,
		Name:      dto.Name,
		ExpiredAt: dto.ExpiredAt,
	}
	return &t, s.db.Create(&t).Error
}

func (s *Service) DeleteToken(userID, tokenID string) error {
	result := s.db.Where("id = ? AND user_id = ?", tokenID, userID).Delete(&models.APIToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errTokenNotFound
	}
	return nil
}

func newAPIToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiTokenPrefix + hex.EncodeToString(b), nil
}
