package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/zimage-studio/zimage-server/internal/app"
	"github.com/zimage-studio/zimage-server/internal/settings"
	"github.com/zimage-studio/zimage-server/internal/types"
	"github.com/zimage-studio/zimage-server/internal/utils/pathutil"
)

func GetSettings(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	c.JSON(http.StatusOK, app.Settings.Get())
}

// UpdateSettings persists new generation settings and releases the loaded
// pipeline, so the next /generate reloads with the new configuration.
func UpdateSettings(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	data := types.SettingsRequest{}
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to parse request body"})
		return
	}

	cacheDir := data.CacheDir
	if cacheDir != "" {
		expanded, err := pathutil.ExpandPath(cacheDir)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to save settings: invalid cache directory"})
			return
		}
		cacheDir = expanded

		if err := os.MkdirAll(cacheDir, os.ModePerm); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to save settings: " + err.Error()})
			return
		}
	}

	app.Settings.Update(func(s *settings.Settings) {
		s.CacheDir = cacheDir
		s.CPUOffload = data.CPUOffload
	})

	app.Resolver.SetCacheDir(cacheDir)
	app.Pipeline.Release(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Settings saved. Model will reload on next generation.",
	})
}
