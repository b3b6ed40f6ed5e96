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

type CardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cards []*types.Card) ([]*types.Card, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) (*types.Card, error)
	ListByDeck(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, limit, offset int) ([]*types.Card, error)
	Update(ctx context.Context, tx *gorm.DB, card *types.Card) error
	SoftDelete(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) error
	SoftDeleteByDeck(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error
	Restore(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) error
}

type cardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCardRepo(db *gorm.DB, baseLog *logger.Logger) CardRepo {
	return &cardRepo{db: db, log: baseLog.With("repo", "CardRepo")}
}

func (cr *cardRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *cardRepo) Create(ctx context.Context, tx *gorm.DB, cards []*types.Card) ([]*types.Card, error) {
	if len(cards) == 0 {
		return []*types.Card{}, nil
	}
	if err := cr.conn(tx).WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (cr *cardRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) (*types.Card, error) {
	var card types.Card
	err := cr.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", cardID, userID).
		First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (cr *cardRepo) ListByDeck(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, limit, offset int) ([]*types.Card, error) {
	var cards []*types.Card
	q := cr.conn(tx).WithContext(ctx).
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (cr *cardRepo) Update(ctx context.Context, tx *gorm.DB, card *types.Card) error {
	return cr.conn(tx).WithContext(ctx).Save(card).Error
}

func (cr *cardRepo) SoftDelete(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) error {
	res := cr.conn(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", cardID, userID).
		Delete(&types.Card{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (cr *cardRepo) SoftDeleteByDeck(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error {
	return cr.conn(tx).WithContext(ctx).
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Delete(&types.Card{}).Error
}

func (cr *cardRepo) Restore(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID) error {
	res := cr.conn(tx).WithContext(ctx).
		Unscoped().
		Model(&types.Card{}).
		Where("id = ? AND user_id = ?", cardID, userID).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
