package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zimage-studio/zimage-server/internal/app"
	"github.com/zimage-studio/zimage-server/internal/notification"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP layer already allows any origin; the socket follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Notifications upgrades the connection and attaches it to the notification
// hub for the lifetime of the socket.
func Notifications(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		app.Logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	notification.ServeWS(app.Hub, conn, app.Logger)
}
