package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-reservations/realtime"
	"github.com/yeremiapane/restaurant-reservations/utils"
)

// FeedController upgrades admin connections to the live reservation feed.
type FeedController struct {
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewFeedController(hub *realtime.Hub, checkOrigin func(*http.Request) bool) *FeedController {
	return &FeedController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (fc *FeedController) HandleWebSocket(c *gin.Context) {
	conn, err := fc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	role := actorFrom(c).Role
	utils.InfoLogger.WithField("role", role).Info("WebSocket client connected")
	fc.Hub.Serve(conn, role)
}
