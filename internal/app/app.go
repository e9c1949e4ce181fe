package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/database"
	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/gateway/gateway"
	"github.com/clauselens/core/internal/pkg/cluster"
	pkgcron "github.com/clauselens/core/internal/pkg/cron"
	pkgredis "github.com/clauselens/core/internal/pkg/redis"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	hub    *gateway.Hub
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → hub → cron → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, cluster.ShouldRunCron())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
		if !cluster.ShouldLogDevDiagnostics() {
			gin.DebugPrintRouteFunc = func(string, string, string, int) {}
			gin.DebugPrintFunc = func(string, ...interface{}) {}
		}
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "x-cl-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	hub := gateway.NewHub(rc, logger,
		func(token string) bool {
			userID, err := middleware.ValidateToken(db, token)
			if err != nil {
				return false
			}
			var user models.UserModel
			if err := db.Select("role").First(&user, "id = ?", userID).Error; err != nil {
				return false
			}
			return user.Role == models.RoleOwner
		},
		func(token string) (string, bool) {
			userID, err := middleware.ValidateToken(db, token)
			if err != nil {
				return "", false
			}
			return userID, true
		},
	)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sched := pkgcron.New()
	app := &App{cfg: cfg, router: router, db: db, hub: hub, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes(rc)

	if cluster.ShouldRunCron() {
		registerCronJobs(sched, db, cfg, rc, logger)
		go sched.Start(ctx)
	}

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

// DashboardProxyPath is where the bundled admin dashboard is served.
func (a *App) DashboardProxyPath() string {
	return "/proxy/dashboard"
}

func (a *App) DashboardProxyDevPath() string {
	return "/proxy/dashboard/dev-proxy"
}

func (a *App) cfgStartTime() time.Time {
	return processStart
}

var processStart = time.Now()
