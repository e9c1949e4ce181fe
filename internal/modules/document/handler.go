package document

import (
	"errors"
	"net/http"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/documents", authMW)

	g.POST("", h.capture)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

// POST /documents
func (h *Handler) capture(c *gin.Context) {
	var dto CaptureDocumentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, created, err := h.svc.Capture(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, errEmptyDocument) || errors.Is(err, errDocumentTooLarge) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if created {
		response.Created(c, doc)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GET /documents?kind=terms
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.List(middleware.CurrentUserID(c), q, c.Query("kind"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// GET /documents/:id
func (h *Handler) get(c *gin.Context) {
	doc, err := h.svc.GetByID(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if doc == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, doc)
}

// PATCH /documents/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdateDocumentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, err := h.svc.Update(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if doc == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, doc)
}

// DELETE /documents/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
