package pageproxy

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	appcfg "github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/modules/system/core/configs"
	"github.com/gin-gonic/gin"
)

const (
	dashboardBasePath  = "/proxy/dashboard"
	dashboardAssetPath = dashboardBasePath + "/assets"

	// EnvDashboardAssetPath overrides the configured dashboard asset dir.
	EnvDashboardAssetPath = "CL_DASHBOARD_ASSET_PATH"
)

// Handler serves locally deployed operator dashboard assets under
// /proxy/dashboard, with the deployment's URLs injected into the entry page.
type Handler struct {
	cfgSvc        *configs.Service
	runtime       *appcfg.AppConfig
	dashboardPath string
}

func NewHandler(cfgSvc *configs.Service, runtime *appcfg.AppConfig) *Handler {
	dashboardPath := strings.TrimSpace(os.Getenv(EnvDashboardAssetPath))
	if dashboardPath == "" {
		dashboardPath = runtime.DashboardDir()
	}
	return &Handler{
		cfgSvc:        cfgSvc,
		runtime:       runtime,
		dashboardPath: filepath.Clean(dashboardPath),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(dashboardBasePath, h.getDashboardEntry)
	rg.GET(dashboardBasePath+"/dev-proxy", h.devProxyPage)
	rg.GET(dashboardBasePath+"/assets/*filepath", h.serveAsset)
}

func (h *Handler) getDashboardEntry(c *gin.Context) {
	entryPath := filepath.Join(h.dashboardPath, "index.html")
	content, err := os.ReadFile(entryPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"message": "dashboard assets not found, set paths.dashboard in config.yml (or " + EnvDashboardAssetPath + ") and deploy the dashboard build there",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	injected, err := h.injectDashboardEnv(string(content))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rewriteEntryAssetPath(injected)))
}

func (h *Handler) devProxyPage(c *gin.Context) {
	urls, err := h.getURLs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Dashboard Dev Proxy</title>
  <style>
    body { margin: 0; padding: 24px; font: 16px/1.6 -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; color: #111; background: #fff; }
    main { max-width: 760px; margin: 0 auto; }
    code { background: #f4f4f4; border-radius: 4px; padding: 2px 6px; }
    pre { background: #f8f8f8; border: 1px solid #eee; border-radius: 8px; padding: 12px; overflow: auto; }
  </style>
</head>
<body>
  <main>
    <h1>Dashboard Dev Proxy</h1>
    <p>Run the dashboard dev server and point it at this backend.</p>
    <p>The production route is available at <code>%s</code>.</p>
    <p>Static assets are served via <code>%s/*</code>.</p>
    <pre>{
  "web_url": %q,
  "gateway_url": %q,
  "base_api": %q
}</pre>
  </main>
</body>
</html>`, dashboardBasePath, dashboardAssetPath, urls.WebURL, urls.WSURL, urls.BaseAPI)))
}

func (h *Handler) serveAsset(c *gin.Context) {
	relative := strings.TrimPrefix(c.Param("filepath"), "/")
	if relative == "" {
		c.Status(http.StatusNotFound)
		return
	}

	cleanRel := strings.TrimPrefix(filepath.Clean("/"+relative), "/")
	fullPath := filepath.Join(h.dashboardPath, cleanRel)

	dashboardRoot, err := filepath.Abs(h.dashboardPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	targetPath, err := filepath.Abs(fullPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if targetPath != dashboardRoot && !strings.HasPrefix(targetPath, dashboardRoot+string(os.PathSeparator)) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid path"})
		return
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "can't serve directory"})
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000")
	c.File(targetPath)
}

type injectedURLs struct {
	WebURL  string
	WSURL   string
	BaseAPI string
}

func (h *Handler) getURLs() (*injectedURLs, error) {
	cfg, err := h.cfgSvc.Get()
	if err != nil {
		return nil, err
	}
	out := &injectedURLs{BaseAPI: baseAPIPath}
	if cfg != nil {
		out.WebURL = cfg.URL.WebURL
		out.WSURL = cfg.URL.WSURL
	}
	return out, nil
}

const baseAPIPath = "/api/v1"

func (h *Handler) injectDashboardEnv(entry string) (string, error) {
	urls, err := h.getURLs()
	if err != nil {
		return "", err
	}

	script := fmt.Sprintf(
		`<script>window.pageSource='server';window.injectData={WEB_URL:%q,BASE_API:%q,GATEWAY:%q,INIT:null};</script>`,
		urls.WebURL,
		urls.BaseAPI,
		urls.WSURL,
	)

	if strings.Contains(entry, "<!-- injectable script -->") {
		return strings.Replace(entry, "<!-- injectable script -->", script, 1), nil
	}
	if strings.Contains(entry, "</head>") {
		return strings.Replace(entry, "</head>", script+"</head>", 1), nil
	}
	return script + entry, nil
}

// rewriteEntryAssetPath repoints root-relative asset references in the entry
// page at the proxy asset route, leaving references that already target the
// proxy untouched.
func rewriteEntryAssetPath(entry string) string {
	const proxyToken = "__CL_PROXY__"

	entry = strings.ReplaceAll(entry, `src="`+dashboardBasePath+`/`, `src="`+proxyToken+`/`)
	entry = strings.ReplaceAll(entry, `href="`+dashboardBasePath+`/`, `href="`+proxyToken+`/`)
	entry = strings.ReplaceAll(entry, `src='`+dashboardBasePath+`/`, `src='`+proxyToken+`/`)
	entry = strings.ReplaceAll(entry, `href='`+dashboardBasePath+`/`, `href='`+proxyToken+`/`)

	entry = strings.ReplaceAll(entry, `src="/`, `src="`+dashboardAssetPath+`/`)
	entry = strings.ReplaceAll(entry, `href="/`, `href="`+dashboardAssetPath+`/`)
	entry = strings.ReplaceAll(entry, `src='/`, `src='`+dashboardAssetPath+`/`)
	entry = strings.ReplaceAll(entry, `href='/`, `href='`+dashboardAssetPath+`/`)

	entry = strings.ReplaceAll(entry, `src="`+proxyToken+`/`, `src="`+dashboardBasePath+`/`)
	entry = strings.ReplaceAll(entry, `href="`+proxyToken+`/`, `href="`+dashboardBasePath+`/`)
	entry = strings.ReplaceAll(entry, `src='`+proxyToken+`/`, `src='`+dashboardBasePath+`/`)
	entry = strings.ReplaceAll(entry, `href='`+proxyToken+`/`, `href='`+dashboardBasePath+`/`)

	return entry
}
