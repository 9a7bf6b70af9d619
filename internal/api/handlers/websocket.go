package handlers

import (
	"log/slog"
	"net/http"

	"rack-service/internal/api/middleware"
	"rack-service/internal/websocket"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *websocket.Hub
	upgrader *gorillaws.Upgrader
}

func NewWSHandler(hub *websocket.Hub, upgrader *gorillaws.Upgrader) *WSHandler {
	return &WSHandler{hub: hub, upgrader: upgrader}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Open the rack update stream. The token is read from the token query parameter or the Authorization header.
// @Tags websocket
// @Param token query string false "Bearer token"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} map[string]interface{} "Missing or invalid token"
// @Failure 429 {object} map[string]interface{} "Too many connection attempts"
// @Security BearerAuth
// @Router /api/v1/ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication token is required"})
		return
	}

	slog.Debug("WebSocket connection request", "userID", identity.UserID, "remote", c.ClientIP())
	websocket.ServeWS(h.hub, h.upgrader, c.Writer, c.Request, *identity)
}
