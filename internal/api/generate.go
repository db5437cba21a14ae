package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zimage-studio/zimage-server/internal/app"
	"github.com/zimage-studio/zimage-server/internal/services/generation"
	"github.com/zimage-studio/zimage-server/internal/types"
	"github.com/zimage-studio/zimage-server/internal/utils/imageutil"
	"go.uber.org/zap"
)

// GenerateImage runs one text-to-image request synchronously and returns the
// result as a base64 PNG data URL.
func GenerateImage(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	data := types.NewGenerateRequest()
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to parse request body"})
		return
	}

	pngBytes, err := app.Orchestrator.Generate(c.Request.Context(), data)
	if err != nil {
		if generation.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		app.Logger.Error("Generation request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": imageutil.DataURL(pngBytes, "image/png")})
}
