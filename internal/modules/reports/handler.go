package reports

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/analyses", authMW)
	g.GET("/:id/report", h.getReport)
	g.POST("/:id/report", h.regenerateReport)
}

// GET /analyses/:id/report?format=html|markdown
func (h *Handler) getReport(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), false)
	if err != nil {
		h.writeReportError(c, err)
		return
	}
	h.writeReport(c, a, c.Query("format"))
}

// POST /analyses/:id/report — force a rebuild
func (h *Handler) regenerateReport(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), true)
	if err != nil {
		h.writeReportError(c, err)
		return
	}
	h.writeReport(c, a, c.Query("format"))
}

func (h *Handler) writeReport(c *gin.Context, a *models.AnalysisModel, format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(a.ReportHTML))
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(a.ReportMarkdown))
	default:
		response.OK(c, gin.H{
			"analysis_id": a.ID,
			"markdown":    a.ReportMarkdown,
			"html":        a.ReportHTML,
		})
	}
}

func (h *Handler) writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errAnalysisNotFound):
		response.NotFound(c)
	case errors.Is(err, errAnalysisNotDone):
		response.UnprocessableEntity(c, errAnalysisNotDone.Error())
	default:
		response.InternalError(c, err)
	}
}
