package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/modules/alerts"
	"github.com/clauselens/core/internal/modules/analysis"
	"github.com/clauselens/core/internal/modules/archive"
	"github.com/clauselens/core/internal/modules/auth"
	"github.com/clauselens/core/internal/modules/auth/passkey"
	"github.com/clauselens/core/internal/modules/document"
	"github.com/clauselens/core/internal/modules/gateway/gateway"
	"github.com/clauselens/core/internal/modules/gateway/notify"
	"github.com/clauselens/core/internal/modules/gateway/pageproxy"
	"github.com/clauselens/core/internal/modules/gateway/webhook"
	init_ "github.com/clauselens/core/internal/modules/init"
	"github.com/clauselens/core/internal/modules/personalization"
	"github.com/clauselens/core/internal/modules/reports"
	"github.com/clauselens/core/internal/modules/servertime"
	"github.com/clauselens/core/internal/modules/stats"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	"github.com/clauselens/core/internal/modules/system/core/health"
	"github.com/clauselens/core/internal/modules/tasks/crontask"
	"github.com/clauselens/core/internal/modules/user"
	"github.com/clauselens/core/internal/pkg/bark"
	pkgredis "github.com/clauselens/core/internal/pkg/redis"
	"github.com/clauselens/core/internal/pkg/response"
	"github.com/clauselens/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)
	ownerMW := middleware.RequireOwner(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "clauselens-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/clauselens/core",
		"issues":   "https://github.com/clauselens/core/issues",
	}

	r.Use(stats.TrackMiddleware(db))

	apiPrefix := "/api/v1"

	// Shared services
	cfgSvc := appconfigs.NewService(db)

	// Bark push service for rate-limit and alert notifications.
	barkSvc := bark.New(func() (key, serverURL, siteTitle string) {
		cfg, err := cfgSvc.Get()
		if err != nil {
			return "", "", ""
		}
		return cfg.BarkOptions.Key, cfg.BarkOptions.ServerURL, cfg.Extension.ProductName
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw(), barkSvc))
	r.Use(middleware.Idempotence(rc.Raw()))

	taskSvc := taskqueue.NewService(rc)

	webhookSvc := webhook.NewService(db)
	notifier := notify.New(db, cfgSvc, webhookSvc, barkSvc, a.hub)

	docSvc := document.NewService(db, cfgSvc)
	alertSvc := alerts.NewService(db, a.logger, notifier)
	analysisSvc := analysis.NewService(db, cfgSvc, taskSvc, docSvc, alertSvc, notifier, a.logger)
	reportSvc := reports.NewService(db, cfgSvc, notifier, a.logger)
	profileSvc := personalization.NewService(db)
	authSvc := auth.NewService(db, cfgSvc)
	userSvc := user.NewService(db)
	archiveSvc := archive.NewService(db, cfgSvc)
	statsSvc := stats.NewService(db, a.hub)

	// Root-level endpoints
	root := r.Group("")
	pageproxy.NewHandler(cfgSvc, a.cfg).RegisterRoutes(root)
	gateway.RegisterRoutes(root, a.hub, authMW, ownerMW)

	// Versioned API
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:                    15 * time.Second,
		EnableCDNHeader:        true,
		EnableForceCacheHeader: false,
		Disable:                a.cfg.IsDev(),
		SkipPaths:              httpCacheSkipPaths(apiPrefix),
	}))

	// Infrastructure
	health.RegisterRoutes(api, db, a.sched, cfgSvc, ownerMW)
	servertime.RegisterRoutes(api)

	// Init (setup wizard)
	init_.NewHandler(db, cfgSvc).RegisterRoutes(api)

	// App info endpoint
	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(a.cfgStartTime()).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	cleanCache := func(c *gin.Context) {
		cfgSvc.Invalidate()
		deleted, err := middleware.PurgeHTTPCache(c.Request.Context(), rc.Raw())
		if err != nil {
			response.InternalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
	}
	api.GET("/clean_cache", authMW, ownerMW, cleanCache)
	api.GET("/clean_redis", authMW, ownerMW, func(c *gin.Context) {
		rc.Raw().FlushDB(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Config
	appconfigs.NewHandler(cfgSvc).RegisterRoutes(api, authMW, ownerMW)

	// Auth & account
	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)
	passkey.NewHandler(db, rc, cfgSvc, authSvc).RegisterRoutes(api, authMW)
	user.NewHandler(userSvc).RegisterRoutes(api, authMW, ownerMW)

	// Personalization
	personalization.NewHandler(profileSvc).RegisterRoutes(api, authMW, ownerMW)

	// Documents and analyses
	document.NewHandler(docSvc).RegisterRoutes(api, authMW)
	analysis.NewHandler(analysisSvc).RegisterRoutes(api, authMW, ownerMW)
	reports.NewHandler(reportSvc).RegisterRoutes(api, authMW)

	// Alerts
	alerts.NewHandler(alertSvc).RegisterRoutes(api, authMW)

	// Webhooks
	webhook.NewHandler(webhookSvc).RegisterRoutes(api, authMW, ownerMW)

	// Archives
	archive.NewHandler(archiveSvc, a.logger).RegisterRoutes(api, ownerMW)

	// Dashboard stats
	stats.NewHandler(statsSvc).RegisterRoutes(api, ownerMW)

	// Cron and queue admin
	crontask.NewHandler(a.sched, taskSvc).RegisterRoutes(api, ownerMW)
}

func httpCacheSkipPaths(apiPrefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(apiPrefix), "/")
	if p == "" {
		p = "/api/v1"
	}
	return []string{
		p + "/uptime",
		p + "/clean_cache",
		p + "/clean_redis",
		p + "/server-time",
		p + "/health",
		p + "/health/*",
		p + "/auth/*",
		p + "/profiles/*",
		p + "/analyses/*",
		p + "/stats",
		p + "/stats/*",
		p + "/archive",
		p + "/archive/*",
	}
}
