package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/deckforge/deckforge-backend/internal/logger"
	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/repos"
	"github.com/deckforge/deckforge-backend/internal/types"
)

// Deck trees are shallow in practice; anything deeper is a data bug.
const maxDeckDepth = 64

type DeckInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

type DeckService interface {
	Create(ctx context.Context, userID uuid.UUID, input DeckInput) (*types.Deck, error)
	Get(ctx context.Context, userID, deckID uuid.UUID) (*types.Deck, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.Deck, error)
	Update(ctx context.Context, userID, deckID uuid.UUID, input DeckInput) (*types.Deck, error)
	Delete(ctx context.Context, userID, deckID uuid.UUID) error
	Restore(ctx context.Context, userID, deckID uuid.UUID) (*types.Deck, error)
	MoveToParent(ctx context.Context, userID, deckID uuid.UUID, parentID *uuid.UUID) (*types.Deck, error)
	Ancestors(ctx context.Context, userID, deckID uuid.UUID) ([]*types.Deck, error)
}

type deckService struct {
	db       *gorm.DB
	log      *logger.Logger
	deckRepo repos.DeckRepo
	cardRepo repos.CardRepo
}

func NewDeckService(db *gorm.DB, log *logger.Logger, deckRepo repos.DeckRepo, cardRepo repos.CardRepo) DeckService {
	return &deckService{
		db:       db,
		log:      log.With("service", "DeckService"),
		deckRepo: deckRepo,
		cardRepo: cardRepo,
	}
}

func tagsJSON(tags []string) datatypes.JSON {
	if len(tags) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func (s *deckService) Create(ctx context.Context, userID uuid.UUID, input DeckInput) (*types.Deck, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("deck name required: %w", pkgerrors.ErrInvalidArgument)
	}
	if input.ParentID != nil {
		if _, err := s.deckRepo.GetByID(ctx, nil, userID, *input.ParentID); err != nil {
			return nil, fmt.Errorf("parent deck: %w", err)
		}
	}
	deck := &types.Deck{
		UserID:      userID,
		ParentID:    input.ParentID,
		Name:        input.Name,
		Description: input.Description,
		Tags:        tagsJSON(input.Tags),
	}
	return s.deckRepo.Create(ctx, nil, deck)
}

func (s *deckService) Get(ctx context.Context, userID, deckID uuid.UUID) (*types.Deck, error) {
	return s.deckRepo.GetByID(ctx, nil, userID, deckID)
}

func (s *deckService) List(ctx context.Context, userID uuid.UUID) ([]*types.Deck, error) {
	return s.deckRepo.ListByUser(ctx, nil, userID)
}

func (s *deckService) Update(ctx context.Context, userID, deckID uuid.UUID, input DeckInput) (*types.Deck, error) {
	deck, err := s.deckRepo.GetByID(ctx, nil, userID, deckID)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		deck.Name = input.Name
	}
	deck.Description = input.Description
	if input.Tags != nil {
		deck.Tags = tagsJSON(input.Tags)
	}
	if err := s.deckRepo.Update(ctx, nil, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

// Delete soft-deletes the deck, its cards, and every descendant deck.
func (s *deckService) Delete(ctx context.Context, userID, deckID uuid.UUID) error {
	if _, err := s.deckRepo.GetByID(ctx, nil, userID, deckID); err != nil {
		return err
	}
	run := func(tx *gorm.DB) error {
		return s.deleteTree(ctx, tx, userID, deckID, 0)
	}
	if s.db == nil {
		return run(nil)
	}
	return s.db.WithContext(ctx).Transaction(run)
}

func (s *deckService) deleteTree(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, depth int) error {
	if depth > maxDeckDepth {
		return fmt.Errorf("deck tree deeper than %d levels", maxDeckDepth)
	}
	children, err := s.deckRepo.ListChildren(ctx, tx, userID, deckID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.deleteTree(ctx, tx, userID, child.ID, depth+1); err != nil {
			return err
		}
	}
	if err := s.cardRepo.SoftDeleteByDeck(ctx, tx, userID, deckID); err != nil {
		return err
	}
	return s.deckRepo.SoftDelete(ctx, tx, userID, deckID)
}

func (s *deckService) Restore(ctx context.Context, userID, deckID uuid.UUID) (*types.Deck, error) {
	if _, err := s.deckRepo.GetDeleted(ctx, nil, userID, deckID); err != nil {
		return nil, err
	}
	if err := s.deckRepo.Restore(ctx, nil, userID, deckID); err != nil {
		return nil, err
	}
	return s.deckRepo.GetByID(ctx, nil, userID, deckID)
}

// MoveToParent reparents a deck after verifying the move would not create a
// cycle in the tree.
func (s *deckService) MoveToParent(ctx context.Context, userID, deckID uuid.UUID, parentID *uuid.UUID) (*types.Deck, error) {
	deck, err := s.deckRepo.GetByID(ctx, nil, userID, deckID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		if *parentID == deckID {
			return nil, fmt.Errorf("deck cannot be its own parent: %w", pkgerrors.ErrInvalidArgument)
		}
		if _, err := s.deckRepo.GetByID(ctx, nil, userID, *parentID); err != nil {
			return nil, fmt.Errorf("parent deck: %w", err)
		}
		cycle, err := s.wouldCreateCycle(ctx, userID, deckID, *parentID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, fmt.Errorf("move would create a cycle: %w", pkgerrors.ErrInvalidArgument)
		}
	}
	deck.ParentID = parentID
	if err := s.deckRepo.Update(ctx, nil, deck); err != nil {
		return nil, err
	}
	return deck, nil
}

// wouldCreateCycle walks up from the proposed parent; hitting the deck being
// moved means the move closes a loop.
func (s *deckService) wouldCreateCycle(ctx context.Context, userID, deckID, parentID uuid.UUID) (bool, error) {
	current := &parentID
	for depth := 0; current != nil; depth++ {
		if depth > maxDeckDepth {
			return false, fmt.Errorf("deck tree deeper than %d levels", maxDeckDepth)
		}
		if *current == deckID {
			return true, nil
		}
		ancestor, err := s.deckRepo.GetByID(ctx, nil, userID, *current)
		if err != nil {
			return false, err
		}
		current = ancestor.ParentID
	}
	return false, nil
}

func (s *deckService) Ancestors(ctx context.Context, userID, deckID uuid.UUID) ([]*types.Deck, error) {
	deck, err := s.deckRepo.GetByID(ctx, nil, userID, deckID)
	if err != nil {
		return nil, err
	}
	var ancestors []*types.Deck
	current := deck.ParentID
	for depth := 0; current != nil; depth++ {
		if depth > maxDeckDepth {
			return nil, fmt.Errorf("deck tree deeper than %d levels", maxDeckDepth)
		}
		ancestor, err := s.deckRepo.GetByID(ctx, nil, userID, *current)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, ancestor)
		current = ancestor.ParentID
	}
	return ancestors, nil
}
