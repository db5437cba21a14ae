package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/zimage-studio/zimage-server/internal/app"
)

// GetFile serves an archived image from local asset storage.
func GetFile(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	// Base strips any path components, so the handler cannot be walked out
	// of the assets directory.
	filename := filepath.Base(c.Param("filename"))
	path := filepath.Join(app.Config().AssetsDir, filename)

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "file not found"})
		return
	}

	c.File(path)
}
