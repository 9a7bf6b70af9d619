package handlers

import (
	"net/http"

	"rack-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type DiagnosticsHandler struct {
	registry *websocket.Registry
	metrics  *websocket.Metrics
}

func NewDiagnosticsHandler(registry *websocket.Registry, metrics *websocket.Metrics) *DiagnosticsHandler {
	return &DiagnosticsHandler{registry: registry, metrics: metrics}
}

// ConnectionsResponse lists the live sessions.
type ConnectionsResponse struct {
	TotalConnections int                        `json:"totalConnections"`
	Connections      []websocket.ConnectionInfo `json:"connections"`
	Metrics          *websocket.MetricsSnapshot `json:"metrics,omitempty"`
}

// GetConnections godoc
// @Summary List live connections
// @Description Every connected session with its user and subscribed racks.
// @Tags diagnostics
// @Produce json
// @Success 200 {object} ConnectionsResponse
// @Failure 401 {object} map[string]interface{} "Missing or invalid token"
// @Failure 403 {object} map[string]interface{} "Caller is not an operator"
// @Security BearerAuth
// @Router /internal/connections [get]
func (h *DiagnosticsHandler) GetConnections(c *gin.Context) {
	snapshot := h.registry.Snapshot()
	resp := ConnectionsResponse{
		TotalConnections: len(snapshot),
		Connections:      snapshot,
	}
	if h.metrics != nil {
		m := h.metrics.Snapshot()
		resp.Metrics = &m
	}
	c.JSON(http.StatusOK, resp)
}
