package stats

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clauselens/core/internal/middleware"
	"github.com/clauselens/core/internal/models"
)

// TrackMiddleware records API traffic into request_logs for the stats
// dashboard. Recording happens after the handler so the status code and the
// resolved user are available.
func TrackMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		rawPath := strings.TrimSpace(c.Request.URL.Path)
		if rawPath != "/api" && !strings.HasPrefix(rawPath, "/api/") {
			return
		}
		path := normalizeTrackPath(rawPath)
		if isTrackExemptPath(path) {
			return
		}
		if isBotUA(c.GetHeader("User-Agent")) {
			return
		}

		ip := strings.TrimSpace(c.ClientIP())
		method := c.Request.Method
		status := c.Writer.Status()
		userID := middleware.CurrentUserID(c)
		ua := parseUA(c.GetHeader("User-Agent"))

		go func() {
			_ = db.Create(&models.RequestLogModel{
				IP:        ip,
				UA:        ua,
				UserID:    userID,
				Method:    method,
				Path:      path,
				Status:    status,
				Timestamp: time.Now(),
			}).Error
		}()
	}
}

// isTrackExemptPath excludes high-frequency plumbing endpoints whose traffic
// would drown out real usage.
func isTrackExemptPath(path string) bool {
	switch path {
	case "/", "/ping", "/health", "/uptime", "/servertime":
		return true
	}
	return strings.HasPrefix(path, "/proxy") || strings.HasPrefix(path, "/stats")
}

// isBotUA reports whether the User-Agent string indicates a bot/crawler.
func isBotUA(ua string) bool {
	lower := strings.ToLower(ua)
	botKeywords := []string{"bot", "crawler", "spider", "headless", "wget", "curl", "python-requests", "go-http", "java/", "scrapy"}
	for _, kw := range botKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// normalizeTrackPath strips the /api and optional /vN version prefix.
func normalizeTrackPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" || p == "/api" {
		return "/"
	}
	if strings.HasPrefix(p, "/api/") {
		p = strings.TrimPrefix(p, "/api")
	}
	if strings.HasPrefix(p, "/v") {
		rest := p[2:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			if isDigits(rest[:slash]) {
				p = rest[slash:]
			}
		} else if isDigits(rest) {
			return "/"
		}
	}

	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func isDigits(raw string) bool {
	if raw == "" {
		return false
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// parseUA extracts browser, OS, and device-type information from a UA string.
func parseUA(ua string) map[string]interface{} {
	result := map[string]interface{}{
		"raw":     ua,
		"type":    "desktop",
		"browser": "Unknown",
		"os":      "Unknown",
	}
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "edg/"):
		result["browser"] = "Edge"
	case strings.Contains(lower, "chrome/"):
		result["browser"] = "Chrome"
	case strings.Contains(lower, "safari/") && strings.Contains(lower, "version/"):
		result["browser"] = "Safari"
	case strings.Contains(lower, "firefox/"):
		result["browser"] = "Firefox"
	}

	switch {
	case strings.Contains(lower, "windows"):
		result["os"] = "Windows"
	case strings.Contains(lower, "mac os"):
		result["os"] = "macOS"
	case strings.Contains(lower, "android"):
		result["os"] = "Android"
	case strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad") || strings.Contains(lower, "ios"):
		result["os"] = "iOS"
	case strings.Contains(lower, "linux"):
		result["os"] = "Linux"
	}

	switch {
	case strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad"):
		result["type"] = "tablet"
	case strings.Contains(lower, "mobile"):
		result["type"] = "mobile"
	}
	return result
}
