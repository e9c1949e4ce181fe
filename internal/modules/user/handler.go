package user

import (
	"errors"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, ownerMW gin.HandlerFunc) {
	g := rg.Group("/user", authMW)
	g.GET("", h.getProfile)
	g.PATCH("", h.updateProfile)
	g.PATCH("/password", h.changePassword)
	g.GET("/identities", h.listIdentities)
	g.DELETE("/identities/:provider", h.unlinkIdentity)

	admin := rg.Group("/users", authMW, ownerMW)
	admin.GET("", h.listUsers)
	admin.GET("/:id", h.getUser)
	admin.DELETE("/:id", h.deleteUser)
}

// GET /user  [auth]
func (h *Handler) getProfile(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

// PATCH /user  [auth]
func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Update(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

// PATCH /user/password  [auth]
func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ChangePassword(middleware.CurrentUserID(c), dto.OldPassword, dto.NewPassword); err != nil {
		if errors.Is(err, errWrongPassword) {
			response.BadRequest(c, err.Error())
			return
		}
		if errors.Is(err, errPasswordSameAsOld) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /user/identities  [auth]
func (h *Handler) listIdentities(c *gin.Context) {
	links, err := h.svc.ListIdentities(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]identityResponse, len(links))
	for i, link := range links {
		items[i] = toIdentityResponse(link)
	}
	response.OK(c, gin.H{"data": items})
}

// DELETE /user/identities/:provider  [auth]
func (h *Handler) unlinkIdentity(c *gin.Context) {
	if err := h.svc.UnlinkIdentity(middleware.CurrentUserID(c), c.Param("provider")); err != nil {
		if errors.Is(err, errIdentityNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /users  [owner]
func (h *Handler) listUsers(c *gin.Context) {
	users, p, err := h.svc.List(pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]userResponse, len(users))
	for i := range users {
		items[i] = toResponse(&users[i])
	}
	response.Paged(c, items, p)
}

// GET /users/:id  [owner]
func (h *Handler) getUser(c *gin.Context) {
	u, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

// DELETE /users/:id  [owner]
func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFound(c)
			return
		}
		if errors.Is(err, errOwnerImmutable) {
			response.ForbiddenMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
