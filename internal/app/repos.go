package app

import (
	"gorm.io/gorm"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/repos"
)

type Repos struct {
	User repos.UserRepo
	Deck repos.DeckRepo
	Card repos.CardRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User: repos.NewUserRepo(db, log),
		Deck: repos.NewDeckRepo(db, log),
		Card: repos.NewCardRepo(db, log),
	}
}
