package app

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/deckforge/deckforge-backend/internal/clients/llm"
	redisclient "github.com/deckforge/deckforge-backend/internal/clients/redis"
	"github.com/deckforge/deckforge-backend/internal/logger"
)

type Clients struct {
	Redis *goredis.Client
	LLM   llm.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	rdb, err := redisclient.NewClient(log)
	if err != nil {
		return Clients{}, err
	}
	gateway, err := llm.NewClient(log)
	if err != nil {
		return Clients{}, err
	}
	return Clients{Redis: rdb, LLM: gateway}, nil
}
