package app

import (
	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/middleware"
)

type Middleware struct {
	Identity *middleware.IdentityMiddleware
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Identity: middleware.NewIdentityMiddleware(log),
	}
}
