package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question holds four items sharing a hidden connection. Options are present
// only in multiple-choice deployments. Immutable once created.
type Question struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GameID        uuid.UUID      `json:"game_id" gorm:"type:uuid;not null;uniqueIndex:idx_game_order"`
	Order         int            `json:"order" gorm:"not null;uniqueIndex:idx_game_order"`
	Items         datatypes.JSON `json:"items" gorm:"not null"`
	Options       datatypes.JSON `json:"options"`
	CorrectAnswer string         `json:"-" gorm:"size:500;not null"`
	Hint          string         `json:"hint"`
	TimeLimit     int            `json:"time_limit" gorm:"not null;default:30"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
