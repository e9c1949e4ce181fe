package auth

import (
	"errors"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/auth/providers"
	"github.com/clauselens/core/internal/pkg/response"
	sessionpkg "github.com/clauselens/core/internal/pkg/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")

	g.GET("/providers", h.listProviders)
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/login/:provider", h.loginExternal)
	g.POST("/logout", middleware.OptionalAuth(h.svc.db), h.logout)
	g.GET("/session", middleware.OptionalAuth(h.svc.db), h.getSession)

	a := g.Group("", authMW)
	a.GET("/sessions", h.listSessions)
	a.DELETE("/sessions", h.revokeOtherSessions)
	a.DELETE("/sessions/:id", h.revokeSession)

	tok := g.Group("/tokens", authMW)
	tok.GET("", h.listTokens)
	tok.POST("", h.createToken)
	tok.DELETE("/:id", h.deleteToken)
}

// GET /auth/providers — which login methods the server accepts.
func (h *Handler) listProviders(c *gin.Context) {
	var passkeys int64
	_ = h.svc.db.Model(&models.PasskeyCredential{}).Count(&passkeys).Error

	response.OK(c, gin.H{
		"password": !h.svc.PasswordLoginDisabled(),
		"passkey":  passkeys > 0,
		"external": h.svc.Registry().Types(),
	})
}

// POST /auth/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, errUsernameTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toUserInfo(u))
}

// POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if h.svc.PasswordLoginDisabled() {
		response.BadRequest(c, "password login is disabled")
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errUserNotFound) || errors.Is(err, errWrongPassword) {
			response.ForbiddenMsg(c, "username or password is incorrect")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, User: toUserInfo(u)})
}

// POST /auth/login/:provider — exchange an external credential for a session.
func (h *Handler) loginExternal(c *gin.Context) {
	var dto ExternalLoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.LoginExternal(c.Request.Context(), c.Param("provider"), dto.Credential, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, providers.ErrUnknownProvider) {
			response.NotFoundMsg(c, "credential provider not found")
			return
		}
		if errors.Is(err, providers.ErrInvalidCredential) {
			response.ForbiddenMsg(c, "credential rejected")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, User: toUserInfo(u)})
}

// POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	if sessionID := middleware.CurrentSessionID(c); sessionID != "" {
		_ = sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), sessionID)
	}
	response.NoContent(c)
}

// GET /auth/session — current session and user, or null when anonymous.
func (h *Handler) getSession(c *gin.Context) {
	if !middleware.IsAuthenticated(c) {
		response.OK(c, nil)
		return
	}
	userID := middleware.CurrentUserID(c)

	var u models.UserModel
	if err := h.svc.db.First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.OK(c, nil)
			return
		}
		response.InternalError(c, err)
		return
	}

	out := gin.H{"user": toUserInfo(&u)}
	if sessionID := middleware.CurrentSessionID(c); sessionID != "" {
		var s models.UserSession
		if err := h.svc.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&s).Error; err == nil {
			out["session"] = gin.H{
				"id":        s.ID,
				"ip":        s.IP,
				"ua":        s.UA,
				"createdAt": s.CreatedAt,
				"expiresAt": s.ExpiresAt,
			}
		}
	}
	response.OK(c, out)
}

// GET /auth/sessions  [auth]
func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	currentSessionID := middleware.CurrentSessionID(c)

	sessions, err := sessionpkg.ListActive(h.svc.db, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	data := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, gin.H{
			"id":      s.ID,
			"ua":      s.UA,
			"ip":      s.IP,
			"date":    s.UpdatedAt,
			"current": s.ID == currentSessionID,
		})
	}
	response.OK(c, gin.H{"data": data})
}

// DELETE /auth/sessions/:id  [auth]
func (h *Handler) revokeSession(c *gin.Context) {
	err := sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// DELETE /auth/sessions  [auth] — revoke every session but the current one.
func (h *Handler) revokeOtherSessions(c *gin.Context) {
	if err := sessionpkg.RevokeAllExcept(h.svc.db, middleware.CurrentUserID(c), middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /auth/tokens  [auth]
func (h *Handler) listTokens(c *gin.Context) {
	tokens, err := h.svc.ListTokens(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]tokenResponse, len(tokens))
	for i, t := range tokens {
		items[i] = tokenResponse{
			ID: t.ID, Name: t.Name, Token: t.Token,
			Expired: t.ExpiredAt, Created: t.CreatedAt,
		}
	}
	response.OK(c, gin.H{"data": items})
}

// POST /auth/tokens  [auth]
func (h *Handler) createToken(c *gin.Context) {
	var dto CreateTokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.CreateToken(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, tokenResponse{
		ID: t.ID, Name: t.Name, Token: t.Token,
		Expired: t.ExpiredAt, Created: t.CreatedAt,
	})
}

// DELETE /auth/tokens/:id  [auth]
func (h *Handler) deleteToken(c *gin.Context) {
	if err := h.svc.DeleteToken(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, errTokenNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
