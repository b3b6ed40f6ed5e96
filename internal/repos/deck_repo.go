package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deckforge/deckforge-backend/internal/logger"
	pkgerrors "github.com/deckforge/deckforge-backend/internal/pkg/errors"
	"github.com/deckforge/deckforge-backend/internal/types"
)

type DeckRepo interface {
	Create(ctx context.Context, tx *gorm.DB, deck *types.Deck) (*types.Deck, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) (*types.Deck, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Deck, error)
	ListChildren(ctx context.Context, tx *gorm.DB, userID, parentID uuid.UUID) ([]*types.Deck, error)
	Update(ctx context.Context, tx *gorm.DB, deck *types.Deck) error
	SoftDelete(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error
	Restore(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error
	GetDeleted(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) (*types.Deck, error)
}

type deckRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeckRepo(db *gorm.DB, baseLog *logger.Logger) DeckRepo {
	return &deckRepo{db: db, log: baseLog.With("repo", "DeckRepo")}
}

func (dr *deckRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return dr.db
}

func (dr *deckRepo) Create(ctx context.Context, tx *gorm.DB, deck *types.Deck) (*types.Deck, error) {
	if err := dr.conn(tx).WithContext(ctx).Create(deck).Error; err != nil {
		return nil, err
	}
	return deck, nil
}

func (dr *deckRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) (*types.Deck, error) {
	var deck types.Deck
	err := dr.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", deckID, userID).
		First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

func (dr *deckRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Deck, error) {
	var decks []*types.Deck
	if err := dr.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

func (dr *deckRepo) ListChildren(ctx context.Context, tx *gorm.DB, userID, parentID uuid.UUID) ([]*types.Deck, error) {
	var decks []*types.Deck
	if err := dr.conn(tx).WithContext(ctx).
		Where("user_id = ? AND parent_id = ?", userID, parentID).
		Find(&decks).Error; err != nil {
		return nil, err
	}
	return decks, nil
}

func (dr *deckRepo) Update(ctx context.Context, tx *gorm.DB, deck *types.Deck) error {
	return dr.conn(tx).WithContext(ctx).Save(deck).Error
}

func (dr *deckRepo) SoftDelete(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error {
	res := dr.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", deckID, userID).
		Delete(&types.Deck{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (dr *deckRepo) Restore(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error {
	res := dr.conn(tx).WithContext(ctx).
		Unscoped().
		Model(&types.Deck{}).
		Where("id = ? AND user_id = ?", deckID, userID).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (dr *deckRepo) GetDeleted(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) (*types.Deck, error) {
	var deck types.Deck
	err := dr.conn(tx).WithContext(ctx).
		Unscoped().
		Where("id = ? AND user_id = ? AND deleted_at IS NOT NULL", deckID, userID).
		First(&deck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}
