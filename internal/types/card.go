package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Card struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DeckID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"deck_id"`
	Deck       *Deck          `gorm:"constraint:OnDelete:CASCADE;foreignKey:DeckID;references:ID" json:"deck,omitempty"`
	Front      string         `gorm:"column:front;not null" json:"front"`
	Back       string         `gorm:"column:back;not null" json:"back"`
	CardType   string         `gorm:"column:card_type;not null;default:basic" json:"card_type"`
	Tags       datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	Source     string         `gorm:"column:source" json:"source,omitempty"`
	Confidence *float64       `gorm:"column:confidence" json:"confidence,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Card) TableName() string { return "card" }
