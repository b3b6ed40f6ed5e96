package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/middleware"
	"github.com/deckforge/deckforge-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewSSEHandler(hub *sse.SSEHub, log *logger.Logger) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSE"),
		hub: hub,
	}
}

// GET /api/v1/sse/stream
//
// Holds the connection open and relays job notifications published on the
// caller's user channel.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, err := middleware.UserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, sse.UserChannel(userID))
	defer h.hub.RemoveClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
