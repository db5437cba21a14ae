package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zimage-studio/zimage-server/internal/app"
)

// Health reports liveness. It must never trigger a model load.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus is the pull-based progress endpoint for clients without a
// WebSocket connection.
func GetStatus(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	c.JSON(http.StatusOK, app.Orchestrator.Tracker().Snapshot())
}
