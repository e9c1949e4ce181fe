package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appcfg "github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/passes"
	"github.com/clauselens/core/internal/pkg/pagination"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/clauselens/core/internal/pkg/taskqueue"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, ownerMW gin.HandlerFunc) {
	g := rg.Group("/analyses", authMW)
	g.POST("", h.createAnalysis)
	g.GET("", h.listAnalyses)
	g.GET("/:id", h.getAnalysis)
	g.DELETE("/:id", h.deleteAnalysis)
	g.POST("/:id/rerun", h.rerunAnalysis)

	ai := rg.Group("/ai")

	modelsRoute := ai.Group("/models", ownerMW)
	modelsRoute.GET("", h.getAvailableModels)
	modelsRoute.GET("/:providerId", h.getModelsForProvider)
	modelsRoute.POST("/list", h.fetchModelsList)
	ai.POST("/test", ownerMW, h.testProviderConnection)

	tasks := ai.Group("/tasks", ownerMW)
	tasks.GET("", h.listTasks)
	tasks.GET("/group/:groupKey", h.getTasksByGroup)
	tasks.GET("/:id", h.getTask)
	tasks.DELETE("/group/:groupKey", h.cancelTasksByGroup)
	tasks.DELETE("/:id", h.deleteTask)
	tasks.DELETE("", h.batchDeleteTasks)
	tasks.POST("/:id/cancel", h.cancelTask)
	tasks.POST("/:id/retry", h.retryTask)
}

// POST /analyses?wait=true
func (h *Handler) createAnalysis(c *gin.Context) {
	var dto CreateAnalysisDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if c.Query("wait") == "true" {
		dto.Wait = true
	}

	a, task, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeRunError(c, err)
		return
	}
	h.writeRunStarted(c, a, task)
}

// GET /analyses?documentId=&status=
func (h *Handler) listAnalyses(c *gin.Context) {
	q := pagination.FromContext(c)
	items, pag, err := h.svc.List(middleware.CurrentUserID(c), q, c.Query("documentId"), c.Query("status"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// GET /analyses/:id
func (h *Handler) getAnalysis(c *gin.Context) {
	a, err := h.svc.Get(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, a)
}

// DELETE /analyses/:id
func (h *Handler) deleteAnalysis(c *gin.Context) {
	if err := h.svc.Delete(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		if errors.Is(err, errAnalysisNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// POST /analyses/:id/rerun?wait=true
func (h *Handler) rerunAnalysis(c *gin.Context) {
	var dto rerunAnalysisDTO
	_ = c.ShouldBindJSON(&dto) // body optional
	wait := dto.Wait || c.Query("wait") == "true"

	a, task, err := h.svc.Rerun(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), wait)
	if err != nil {
		h.writeRunError(c, err)
		return
	}
	h.writeRunStarted(c, a, task)
}

func (h *Handler) writeRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errDocumentNotFound), errors.Is(err, errAnalysisNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, errNoProvider):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errAnalysisUnavailable):
		response.UnprocessableEntity(c, errAnalysisUnavailable.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) writeRunStarted(c *gin.Context, a *models.AnalysisModel, task *taskqueue.Task) {
	if a.Status == models.AnalysisStatusDone {
		response.OK(c, a)
		return
	}
	body := gin.H{"message": "analysis queued", "analysis": a}
	if task != nil {
		body["task_id"] = task.ID
	}
	c.JSON(http.StatusAccepted, body)
}

// GET /ai/models  [owner]
func (h *Handler) getAvailableModels(c *gin.Context) {
	cfg, err := h.svc.cfgSvc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]providerModelsResponse, 0, len(cfg.AI.Providers))
	for _, p := range cfg.AI.Providers {
		if !p.Enabled || p.APIKey == "" {
			continue
		}
		out = append(out, providerModelsResponse{
			ProviderID:   p.ID,
			ProviderName: p.Name,
			ProviderType: p.Type,
			Models:       passes.ModelsFromProvider(p),
		})
	}
	response.OK(c, out)
}

// GET /ai/models/:providerId  [owner]
func (h *Handler) getModelsForProvider(c *gin.Context) {
	providerID := c.Param("providerId")
	cfg, err := h.svc.cfgSvc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	for _, p := range cfg.AI.Providers {
		if p.ID == providerID {
			response.OK(c, providerModelsResponse{
				ProviderID:   p.ID,
				ProviderName: p.Name,
				ProviderType: p.Type,
				Models:       passes.ModelsFromProvider(p),
			})
			return
		}
	}
	response.NotFoundMsg(c, "AI provider not found")
}

// POST /ai/models/list  [owner]
func (h *Handler) fetchModelsList(c *gin.Context) {
	var dto fetchModelsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Prefer the request payload; fall back to the stored provider.
	provider := appcfg.AIProvider{
		ID:       dto.ProviderID,
		Name:     dto.ProviderID,
		Type:     dto.Type,
		APIKey:   dto.APIKey,
		Endpoint: dto.Endpoint,
		Enabled:  true,
	}
	if dto.ProviderID != "" {
		if cfg, err := h.svc.cfgSvc.Get(); err == nil {
			for _, p := range cfg.AI.Providers {
				if p.ID != dto.ProviderID {
					continue
				}
				if provider.Type == "" {
					provider.Type = p.Type
				}
				if provider.APIKey == "" {
					provider.APIKey = p.APIKey
				}
				if provider.Endpoint == "" {
					provider.Endpoint = p.Endpoint
				}
				if provider.DefaultModel == "" {
					provider.DefaultModel = p.DefaultModel
				}
				if provider.Name == "" {
					provider.Name = p.Name
				}
				break
			}
		}
	}

	if provider.Type == "" || provider.APIKey == "" {
		response.OK(c, gin.H{
			"models": []passes.ModelInfo{},
			"error":  "provider type and api key are required",
		})
		return
	}

	fetched, err := passes.FetchModels(provider)
	if err != nil {
		response.OK(c, gin.H{
			"models": passes.ModelsFromProvider(provider),
			"error":  err.Error(),
		})
		return
	}
	if len(fetched) == 0 {
		fetched = passes.ModelsFromProvider(provider)
	}
	response.OK(c, gin.H{"models": fetched})
}

// POST /ai/test  [owner]
func (h *Handler) testProviderConnection(c *gin.Context) {
	var dto testConnectionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.ProviderID != "" && (dto.Type == "" || dto.APIKey == "" || dto.Model == "") {
		if cfg, err := h.svc.cfgSvc.Get(); err == nil {
			for _, p := range cfg.AI.Providers {
				if p.ID != dto.ProviderID {
					continue
				}
				if dto.Type == "" {
					dto.Type = p.Type
				}
				if dto.APIKey == "" {
					dto.APIKey = p.APIKey
				}
				if dto.Model == "" {
					dto.Model = p.DefaultModel
				}
				if dto.Endpoint == "" {
					dto.Endpoint = p.Endpoint
				}
				break
			}
		}
	}
	if dto.Type == "" || dto.APIKey == "" || dto.Model == "" {
		response.BadRequest(c, "type, apiKey and model are required")
		return
	}

	provider := appcfg.AIProvider{
		Type:         dto.Type,
		APIKey:       dto.APIKey,
		Endpoint:     dto.Endpoint,
		DefaultModel: dto.Model,
		Enabled:      true,
	}
	if _, err := passes.Call(c.Request.Context(), &provider, "", "Reply with the single word OK.", 16); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}
