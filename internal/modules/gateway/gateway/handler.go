package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts socket.io and the stats endpoint.
func RegisterRoutes(rg *gin.RouterGroup, hub *Hub, authMW, ownerMW gin.HandlerFunc) {
	handler := gin.WrapH(hub.Handler())
	rg.Any("/socket.io", handler)
	rg.Any("/socket.io/*any", handler)

	// GET /gateway/stats
	rg.GET("/gateway/stats", authMW, ownerMW, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"extension": hub.ClientCount(RoomExtension),
			"admin":     hub.ClientCount(RoomAdmin),
			"users":     hub.OnlineUserCount(),
			"total":     hub.ClientCount(""),
		})
	})
}
