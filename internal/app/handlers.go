package app

import (
	"github.com/deckforge/deckforge-backend/internal/handlers"
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/sse"
)

type Handlers struct {
	Generation *handlers.GenerationHandler
	FactCheck  *handlers.FactCheckHandler
	Deck       *handlers.DeckHandler
	Card       *handlers.CardHandler
	SSE        *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, svcs Services, ssehub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Generation: handlers.NewGenerationHandler(svcs.Generation, log),
		FactCheck:  handlers.NewFactCheckHandler(svcs.FactCheck, log),
		Deck:       handlers.NewDeckHandler(svcs.Decks, log),
		Card:       handlers.NewCardHandler(svcs.Cards, log),
		SSE:        handlers.NewSSEHandler(ssehub, log),
	}
}
