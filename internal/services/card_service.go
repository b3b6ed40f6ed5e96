package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deckforge/deckforge-backend/internal/logger"
	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/repos"
	"github.com/deckforge/deckforge-backend/internal/types"
)

type CardInput struct {
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	CardType string   `json:"card_type"`
	Tags     []string `json:"tags,omitempty"`
	Source   string   `json:"source,omitempty"`
}

type CardService interface {
	Create(ctx context.Context, userID, deckID uuid.UUID, input CardInput) (*types.Card, error)
	SaveGenerated(ctx context.Context, userID, deckID uuid.UUID, generated []types.GeneratedCard) ([]*types.Card, error)
	Get(ctx context.Context, userID, cardID uuid.UUID) (*types.Card, error)
	ListByDeck(ctx context.Context, userID, deckID uuid.UUID, limit, offset int) ([]*types.Card, error)
	Update(ctx context.Context, userID, cardID uuid.UUID, input CardInput) (*types.Card, error)
	Delete(ctx context.Context, userID, cardID uuid.UUID) error
	Restore(ctx context.Context, userID, cardID uuid.UUID) error
}

type cardService struct {
	db       *gorm.DB
	log      *logger.Logger
	deckRepo repos.DeckRepo
	cardRepo repos.CardRepo
}

func NewCardService(db *gorm.DB, log *logger.Logger, deckRepo repos.DeckRepo, cardRepo repos.CardRepo) CardService {
	return &cardService{
		db:       db,
		log:      log.With("service", "CardService"),
		deckRepo: deckRepo,
		cardRepo: cardRepo,
	}
}

func (s *cardService) Create(ctx context.Context, userID, deckID uuid.UUID, input CardInput) (*types.Card, error) {
	if input.Front == "" || input.Back == "" {
		return nil, fmt.Errorf("card front and back required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := s.deckRepo.GetByID(ctx, nil, userID, deckID); err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	cardType := input.CardType
	if cardType == "" {
		cardType = "basic"
	}
	card := &types.Card{
		UserID:   userID,
		DeckID:   deckID,
		Front:    input.Front,
		Back:     input.Back,
		CardType: cardType,
		Tags:     tagsJSON(input.Tags),
		Source:   input.Source,
	}
	created, err := s.cardRepo.Create(ctx, nil, []*types.Card{card})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// SaveGenerated persists a generation run's approved cards into a deck.
func (s *cardService) SaveGenerated(ctx context.Context, userID, deckID uuid.UUID, generated []types.GeneratedCard) ([]*types.Card, error) {
	if _, err := s.deckRepo.GetByID(ctx, nil, userID, deckID); err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	cards := make([]*types.Card, 0, len(generated))
	for _, g := range generated {
		cards = append(cards, &types.Card{
			UserID:     userID,
			DeckID:     deckID,
			Front:      g.Front,
			Back:       g.Back,
			CardType:   g.CardType,
			Tags:       tagsJSON(g.Tags),
			Source:     g.Source,
			Confidence: g.Confidence,
		})
	}
	var saved []*types.Card
	run := func(tx *gorm.DB) error {
		var txErr error
		saved, txErr = s.cardRepo.Create(ctx, tx, cards)
		return txErr
	}
	var err error
	if s.db == nil {
		err = run(nil)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("Generated cards saved", "deckID", deckID, "count", len(saved))
	return saved, nil
}

func (s *cardService) Get(ctx context.Context, userID, cardID uuid.UUID) (*types.Card, error) {
	return s.cardRepo.GetByID(ctx, nil, userID, cardID)
}

func (s *cardService) ListByDeck(ctx context.Context, userID, deckID uuid.UUID, limit, offset int) ([]*types.Card, error) {
	if _, err := s.deckRepo.GetByID(ctx, nil, userID, deckID); err != nil {
		return nil, fmt.Errorf("deck: %w", err)
	}
	return s.cardRepo.ListByDeck(ctx, nil, userID, deckID, limit, offset)
}

func (s *cardService) Update(ctx context.Context, userID, cardID uuid.UUID, input CardInput) (*types.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, nil, userID, cardID)
	if err != nil {
		return nil, err
	}
	if input.Front != "" {
		card.Front = input.Front
	}
	if input.Back != "" {
		card.Back = input.Back
	}
	if input.CardType != "" {
		card.CardType = input.CardType
	}
	if input.Tags != nil {
		card.Tags = tagsJSON(input.Tags)
	}
	if input.Source != "" {
		card.Source = input.Source
	}
	if err := s.cardRepo.Update(ctx, nil, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *cardService) Delete(ctx context.Context, userID, cardID uuid.UUID) error {
	return s.cardRepo.SoftDelete(ctx, nil, userID, cardID)
}

func (s *cardService) Restore(ctx context.Context, userID, cardID uuid.UUID) error {
	return s.cardRepo.Restore(ctx, nil, userID, cardID)
}
