package handlers

import (
	"log/slog"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/relaydesk/relaydesk-backend/internal/websocket"
)

// WSHandler upgrades HTTP connections to websocket sessions on the hub.
// Clients subscribe to conversation or attachment topics after connecting.
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a new WSHandler with origin checking
func NewWSHandler(hub *websocket.Hub, allowedOrigins []string, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		upgrader: websocket.NewSecureUpgrader(allowedOrigins, logger),
		logger:   logger,
	}
}

// Serve handles GET /ws
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		}
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	return nil
}
