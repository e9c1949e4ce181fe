package configs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/pkg/mail"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, ownerMW gin.HandlerFunc) {
	g := rg.Group("/configs")

	g.GET("", h.getPublic)

	a := g.Group("", authMW, ownerMW)
	a.GET("/all", h.getAll)
	a.PATCH("", h.patch)

	// /options/:key - used by the admin panel (e.g. PATCH /options/ai)
	opts := rg.Group("/options", authMW, ownerMW)
	opts.GET("", h.getOptionsAll)
	opts.GET("/email/template", h.getEmailTemplate)
	opts.GET("/:key", h.getOption)
	opts.PATCH("/:key", h.patchOption)
	opts.PUT("/email/template", h.putEmailTemplate)
	opts.DELETE("/email/template", h.deleteEmailTemplate)
}

// getPublic returns the subset of the config the extension may see without
// authenticating: branding, endpoints, enabled features and login methods.
func (h *Handler) getPublic(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"extension":    cfg.Extension,
		"url":          cfg.URL,
		"feature_list": cfg.FeatureList,
		"auth": gin.H{
			"password_login": !cfg.AuthSecurity.DisablePasswordLogin,
			"providers":      enabledCredentialTypes(cfg.AuthSecurity.Credential),
			"passkey":        strings.TrimSpace(cfg.AuthSecurity.Passkey.RPID) != "",
		},
	})
}

// getAll returns the full config (owner only). Sensitive fields like API keys are included.
func (h *Handler) getAll(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, cfg)
}

// patch merges a partial config update.
func (h *Handler) patch(c *gin.Context) {
	var partial map[string]json.RawMessage
	if err := c.ShouldBindJSON(&partial); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Patch(partial)
	if err != nil {
		if errors.Is(err, errReportsProviderNotEnabled) {
			response.BadRequest(c, "enable an AI provider before turning on reports")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, updated)
}

// getOption returns a specific top-level config key (e.g. GET /options/ai).
func (h *Handler) getOption(c *gin.Context) {
	key := normalizeOptionKey(c.Param("key"))
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	// Re-marshal and pick the key
	full, _ := json.Marshal(cfg)
	var m map[string]json.RawMessage
	json.Unmarshal(full, &m)
	if val, ok := m[key]; ok {
		var result interface{}
		json.Unmarshal(val, &result)
		response.OK(c, convertMapKeys(result, snakeToCamelKey))
		return
	}
	response.NotFound(c)
}

// patchOption merges an update into a specific top-level config key (e.g. PATCH /options/ai).
func (h *Handler) patchOption(c *gin.Context) {
	key := normalizeOptionKey(c.Param("key"))
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	normalizedBody, err := normalizeJSONKeys(body, camelToSnakeKey)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Patch(map[string]json.RawMessage{key: normalizedBody})
	if err != nil {
		if errors.Is(err, errReportsProviderNotEnabled) {
			response.BadRequest(c, "enable an AI provider before turning on reports")
			return
		}
		response.InternalError(c, err)
		return
	}

	full, _ := json.Marshal(updated)
	var m map[string]json.RawMessage
	json.Unmarshal(full, &m)
	if val, ok := m[key]; ok {
		var result interface{}
		json.Unmarshal(val, &result)
		response.OK(c, convertMapKeys(result, snakeToCamelKey))
		return
	}
	response.OK(c, convertMapKeys(updated, snakeToCamelKey))
}

func (h *Handler) getOptionsAll(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, convertMapKeys(cfg, snakeToCamelKey))
}

func enabledCredentialTypes(sources []config.CredentialSource) []string {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.Enabled {
			out = append(out, src.Type)
		}
	}
	return out
}

// exampleTemplateProps feeds the template editor preview for each mail kind.
var exampleTemplateProps = map[string]interface{}{
	mail.TemplateAlert: mail.RiskAlertData{
		ProductName:   "ClauseLens",
		DocumentTitle: "Example SaaS Terms of Service",
		Category:      "privacy",
		Score:         8.2,
		Threshold:     6.5,
		RiskLevel:     "high",
		Summary:       "The service may share personal data with unnamed third parties and retains content after account deletion.",
		KeyPoints: []string{
			"Data shared with third-party partners",
			"Content license survives account deletion",
		},
		DetailURL: "https://app.example.com/analyses/55f3bdd1",
	},
	mail.TemplateDigest: mail.DailyDigestData{
		ProductName:   "ClauseLens",
		Date:          "2026-01-15",
		AnalysisCount: 4,
		AlertCount:    2,
		Items: []mail.DigestItem{
			{Title: "Example SaaS Terms of Service", RiskLevel: "high", Score: 8.2},
			{Title: "Photo App Privacy Policy", RiskLevel: "medium", Score: 5.4},
		},
		DashboardURL: "https://app.example.com/dashboard",
	},
	mail.TemplateVerify: mail.VerifyMailData{
		VerifyURL: "https://app.example.com/verify?token=example",
	},
}

// GET /options/email/template?type=alert|digest|verify
func (h *Handler) getEmailTemplate(c *gin.Context) {
	templateType := c.Query("type")
	def, ok := mail.DefaultTemplate(templateType)
	if !ok {
		response.BadRequest(c, "invalid type, must be alert|digest|verify")
		return
	}

	templateStr := def
	if override, ok := h.svc.EmailTemplateOverride(templateType); ok {
		templateStr = override
	}

	response.OK(c, gin.H{"template": templateStr, "props": exampleTemplateProps[templateType]})
}

// PUT /options/email/template?type=...  body: {source: string}
func (h *Handler) putEmailTemplate(c *gin.Context) {
	templateType := c.Query("type")
	if _, ok := mail.DefaultTemplate(templateType); !ok {
		response.BadRequest(c, "invalid type, must be alert|digest|verify")
		return
	}
	var body struct {
		Source string `json:"source" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := mail.ValidateTemplate(body.Source); err != nil {
		response.BadRequest(c, "template does not parse: "+err.Error())
		return
	}
	opt := models.OptionModel{Name: emailTemplateKeyPrefix + templateType, Value: body.Source}
	if err := h.svc.db.Where("name = ?", opt.Name).Assign(opt).FirstOrCreate(&opt).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"source": body.Source})
}

// DELETE /options/email/template?type=... resets the kind to its built-in.
func (h *Handler) deleteEmailTemplate(c *gin.Context) {
	templateType := c.Query("type")
	if _, ok := mail.DefaultTemplate(templateType); !ok {
		response.BadRequest(c, "invalid type, must be alert|digest|verify")
		return
	}
	h.svc.db.Where("name = ?", emailTemplateKeyPrefix+templateType).Delete(&models.OptionModel{})
	response.NoContent(c)
}
