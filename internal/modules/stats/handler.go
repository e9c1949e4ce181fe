package stats

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clauselens/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, ownerMW gin.HandlerFunc) {
	g := rg.Group("/stats", ownerMW)
	g.GET("", h.overview)
	g.GET("/paths", h.topPaths)
}

// GET /stats
func (h *Handler) overview(c *gin.Context) {
	overview, err := h.svc.Overview(time.Now())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, overview)
}

// GET /stats/paths?days=7&limit=10
func (h *Handler) topPaths(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days < 1 || days > 90 {
		days = 7
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rows, err := h.svc.TopPaths(time.Now().AddDate(0, 0, -days), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": rows})
}
