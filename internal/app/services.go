package app

import (
	"gorm.io/gorm"

	"github.com/deckforge/deckforge-backend/internal/generation"
	"github.com/deckforge/deckforge-backend/internal/jobstore"
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/services"
	"github.com/deckforge/deckforge-backend/internal/sse"
)

type Services struct {
	JobStore     jobstore.Store
	CardPipeline *generation.CardPipeline
	FactCheck    *generation.FactCheckPipeline
	Generation   services.GenerationService
	Decks        services.DeckService
	Cards        services.CardService
}

func wireServices(db *gorm.DB, log *logger.Logger, clients Clients, reposet Repos, ssehub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	store, err := jobstore.NewRedisStore(clients.Redis, log)
	if err != nil {
		return Services{}, err
	}

	cardPipeline, err := generation.NewCardPipeline(clients.LLM, nil, log)
	if err != nil {
		return Services{}, err
	}
	factCheck, err := generation.NewFactCheckPipeline(clients.LLM, log)
	if err != nil {
		return Services{}, err
	}

	notifier := services.NewSSEJobNotifier(ssehub)
	generationSvc, err := services.NewGenerationService(store, cardPipeline, notifier, log)
	if err != nil {
		return Services{}, err
	}

	return Services{
		JobStore:     store,
		CardPipeline: cardPipeline,
		FactCheck:    factCheck,
		Generation:   generationSvc,
		Decks:        services.NewDeckService(db, log, reposet.Deck, reposet.Card),
		Cards:        services.NewCardService(db, log, reposet.Deck, reposet.Card),
	}, nil
}
