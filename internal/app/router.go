package app

import (
	"github.com/gin-gonic/gin"

	"github.com/deckforge/deckforge-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:       cfg.ServiceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		Identity:          mw.Identity,
		GenerationHandler: handlerset.Generation,
		FactCheckHandler:  handlerset.FactCheck,
		DeckHandler:       handlerset.Deck,
		CardHandler:       handlerset.Card,
		SSEHandler:        handlerset.SSE,
	})
}
