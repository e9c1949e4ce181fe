package alerts

import (
	"errors"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/alerts", authMW)

	g.GET("/rules", h.listRules)
	g.POST("/rules", h.createRule)
	g.POST("/rules/test", h.testRule)
	g.POST("/rules/:id/test", h.testSavedRule)
	g.GET("/rules/:id", h.getRule)
	g.PUT("/rules/:id", h.updateRule)
	g.PATCH("/rules/:id", h.updateRule)
	g.DELETE("/rules/:id", h.deleteRule)
	g.GET("/events", h.listEvents)
}

// GET /alerts/rules
func (h *Handler) listRules(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.ListRules(middleware.CurrentUserID(c), q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// POST /alerts/rules
func (h *Handler) createRule(c *gin.Context) {
	var dto CreateRuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rule, err := h.svc.CreateRule(middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Created(c, rule)
}

// GET /alerts/rules/:id
func (h *Handler) getRule(c *gin.Context) {
	rule, err := h.svc.GetRule(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if rule == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, rule)
}

// PUT /alerts/rules/:id
func (h *Handler) updateRule(c *gin.Context) {
	var dto UpdateRuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rule, err := h.svc.UpdateRule(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		switch {
		case errors.Is(err, errRuleNotFound):
			response.NotFound(c)
		case errors.Is(err, errBuiltInRule):
			response.ForbiddenMsg(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}
	response.OK(c, rule)
}

// DELETE /alerts/rules/:id
func (h *Handler) deleteRule(c *gin.Context) {
	err := h.svc.DeleteRule(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, errRuleNotFound):
			response.NotFound(c)
		case errors.Is(err, errBuiltInRule):
			response.ForbiddenMsg(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.NoContent(c)
}

// POST /alerts/rules/test
func (h *Handler) testRule(c *gin.Context) {
	var dto TestRuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.TestRule(middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, errNoAnalysisForTest) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, result)
}

// POST /alerts/rules/:id/test
func (h *Handler) testSavedRule(c *gin.Context) {
	var dto struct {
		AnalysisID string `json:"analysis_id"`
	}
	_ = c.ShouldBindJSON(&dto)

	result, err := h.svc.TestSavedRule(middleware.CurrentUserID(c), c.Param("id"), dto.AnalysisID)
	if err != nil {
		switch {
		case errors.Is(err, errRuleNotFound):
			response.NotFound(c)
		case errors.Is(err, errNoAnalysisForTest):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}
	response.OK(c, result)
}

// GET /alerts/events?analysisId=&category=
func (h *Handler) listEvents(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.ListEvents(
		middleware.CurrentUserID(c), q,
		c.Query("analysisId"), c.Query("category"),
	)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}
