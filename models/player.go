package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Player is an ephemeral identity created per session. Players not attached
// to an active room are garbage-collected after a period of inactivity.
type Player struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username   string    `json:"username" gorm:"not null;index"`
	LastActive time.Time `json:"last_active" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Player) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.LastActive.IsZero() {
		p.LastActive = time.Now().UTC()
	}
	return nil
}
