package server

import (
	"github.com/gin-gonic/gin"
	"github.com/zimage-studio/zimage-server/internal/api"
	"github.com/zimage-studio/zimage-server/internal/app"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.GET("/health", api.Health)
	s.ginEngine.GET("/status", handlerWrapper(app, api.GetStatus))

	s.ginEngine.GET("/settings", handlerWrapper(app, api.GetSettings))
	s.ginEngine.POST("/settings/model-path", handlerWrapper(app, api.UpdateSettings))

	s.ginEngine.POST("/generate", handlerWrapper(app, api.GenerateImage))

	s.ginEngine.GET("/ws", handlerWrapper(app, api.Notifications))

	s.ginEngine.GET("/file/:filename", handlerWrapper(app, api.GetFile))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
