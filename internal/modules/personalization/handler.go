package personalization

import (
	"encoding/json"
	"errors"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/modules/personalization/profile"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, ownerMW gin.HandlerFunc) {
	g := rg.Group("/profiles", authMW)

	g.POST("", h.submit)
	g.GET("/me", h.me)
	g.PUT("/me/sections/:section", h.updateSection)
	g.DELETE("/me", h.delete)

	g.GET("", ownerMW, h.adminList)
	g.POST("/recompute", ownerMW, h.recompute)
}

// POST /profiles
func (h *Handler) submit(c *gin.Context) {
	var r profile.RawPersonalizationResponse
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.svc.Submit(middleware.CurrentUserID(c), r)
	if err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(c, verr.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

// GET /profiles/me
func (h *Handler) me(c *gin.Context) {
	m, err := h.svc.GetByUser(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, m)
}

// PUT /profiles/me/sections/:section
func (h *Handler) updateSection(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.svc.UpdateSection(middleware.CurrentUserID(c), c.Param("section"), body)
	if err != nil {
		var verr *profile.ValidationError
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.NotFoundMsg(c, "no profile submitted yet")
		case errors.Is(err, errUnknownSection), errors.Is(err, errBadSectionBody):
			response.BadRequest(c, err.Error())
		case errors.As(err, &verr):
			response.BadRequest(c, verr.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, m)
}

// DELETE /profiles/me
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(middleware.CurrentUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /profiles
func (h *Handler) adminList(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.AdminList(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// POST /profiles/recompute
func (h *Handler) recompute(c *gin.Context) {
	report, err := h.svc.RecomputeStale()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}
